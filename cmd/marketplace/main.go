package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"github.com/robfig/cron"

	adapthttp "marketplace/internal/adapter/http"
	"marketplace/internal/app"
	"marketplace/internal/config"
	"marketplace/internal/logging"
)

type options struct {
	ConfigFile    string `short:"C" long:"configfile" description:"Path to a YAML configuration file"`
	EnvFile       string `long:"envfile" default:".env" description:"Path to a dotenv file; ignored when missing"`
	CreateAdmin   string `long:"create-admin" value-name:"EMAIL" description:"Create a verified administrator and exit"`
	AdminPassword string `long:"admin-password" description:"Password for --create-admin"`
	MigrateOnly   bool   `long:"migrate-only" description:"Apply database migrations and exit"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "marketplace: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load(opts.ConfigFile, opts.EnvFile)
	if err != nil {
		return err
	}

	log, closeLog, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}, os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	if opts.MigrateOnly {
		if b.db == nil {
			return errors.New("--migrate-only requires postgres storage")
		}
		log.Info("migrations applied")
		return nil
	}

	authSvc := app.NewAuthService(b.users, b.sessions, b.tokens, b.mailer, log, app.AuthConfig{
		AllowedDomain:  cfg.AllowedEmailDomain,
		SessionTTL:     cfg.SessionTTL,
		VerifyTokenTTL: cfg.VerifyTokenTTL,
		VerifyURL:      cfg.VerifyURL(),
	})
	listingSvc := app.NewListingService(b.listings, log)
	userSvc := app.NewUserService(b.users, b.listings, log)

	if opts.CreateAdmin != "" {
		u, err := authSvc.CreateSuperuser(ctx, opts.CreateAdmin, opts.AdminPassword)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		log.Info("administrator created", "user_id", u.ID, "email", u.Email)
		return nil
	}

	var sso *adapthttp.SSO
	if cfg.OIDC.Enabled() {
		sso, err = adapthttp.NewSSO(ctx, cfg.OIDC.Issuer, cfg.OIDC.ClientID, cfg.OIDC.ClientSecret, cfg.SSOCallbackURL())
		if err != nil {
			return err
		}
		log.Info("sso enabled", "issuer", cfg.OIDC.Issuer)
	}

	sweeper := cron.New()
	if err := sweeper.AddFunc(cfg.SessionSweep, func() {
		if err := authSvc.SweepSessions(ctx); err != nil {
			log.Warn("sweep expired sessions", "err", err)
		}
	}); err != nil {
		return fmt.Errorf("session sweep schedule %q: %w", cfg.SessionSweep, err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	h := adapthttp.New(authSvc, listingSvc, userSvc, log, adapthttp.Options{
		BaseURL:     cfg.BaseURL,
		FrontendURL: cfg.FrontendURL,
		StaticDir:   cfg.StaticDir,
		Cookie:      adapthttp.CookieOptions{Name: cfg.Cookie.Name, Domain: cfg.Cookie.Domain, Secure: cfg.Cookie.Secure},
		SSO:         sso,
	}).Handler()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr, "storage", cfg.Storage, "sessions", cfg.SessionStore)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
