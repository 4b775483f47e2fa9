package main

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"marketplace/internal/adapter/mail"
	"marketplace/internal/adapter/memory"
	"marketplace/internal/adapter/postgres"
	"marketplace/internal/adapter/redis"
	"marketplace/internal/config"
	"marketplace/internal/domain"
	"marketplace/internal/token"
)

// backends holds the driven adapters selected by configuration.
type backends struct {
	db    *postgres.DB
	mem   *memory.DB
	redis *goredis.Client

	users    domain.UserRepository
	listings domain.ListingRepository
	sessions domain.SessionRepository
	tokens   domain.TokenIssuer
	mailer   domain.Mailer
}

func (b *backends) memDB() *memory.DB {
	if b.mem == nil {
		b.mem = memory.New()
	}
	return b.mem
}

func (b *backends) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.db != nil {
		_ = b.db.Close()
	}
}

func openBackends(ctx context.Context, cfg *config.Config, log *slog.Logger) (*backends, error) {
	b := &backends{}
	if err := b.open(ctx, cfg, log); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *backends) open(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	var err error

	switch cfg.Storage {
	case config.BackendPostgres:
		if b.db, err = postgres.Open(ctx, cfg.DatabaseURL); err != nil {
			return err
		}
		b.users = postgres.NewUserRepo(b.db)
		b.listings = postgres.NewListingRepo(b.db)
	default:
		log.Warn("using in-memory storage; data is lost on exit")
		b.users = b.memDB().Users()
		b.listings = b.memDB().Listings()
	}

	if cfg.Redis.Addr != "" {
		if b.redis, err = redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			return err
		}
	}

	switch cfg.SessionStore {
	case config.BackendPostgres:
		b.sessions = postgres.NewSessionRepo(b.db)
	case config.BackendRedis:
		b.sessions = redis.NewSessionRepo(b.redis)
	default:
		b.sessions = b.memDB().NewSessionRepo()
	}

	switch {
	case cfg.VerifyTokens == config.TokensSigned:
		b.tokens = token.NewSigned(cfg.AuthSecret, "marketplace")
	case b.redis != nil:
		b.tokens = token.NewOpaque(redis.NewTokenStore(b.redis))
	default:
		b.tokens = token.NewOpaque(b.memDB().TokenStore())
	}

	b.mailer, err = mail.New(mail.Config{
		Host:     cfg.SMTP.Host,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)
	return err
}
