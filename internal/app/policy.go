package app

import (
	"marketplace/internal/domain"
)

// Action names a gated operation.
type Action uint8

// Gated actions.
const (
	ActionViewAdmin Action = iota
	ActionBan
	ActionUnban
	ActionCreateListing
	ActionUpdateListing
	ActionUpdateProfile
)

func (a Action) String() string {
	switch a {
	case ActionViewAdmin:
		return "view-admin"
	case ActionBan:
		return "ban"
	case ActionUnban:
		return "unban"
	case ActionCreateListing:
		return "create-listing"
	case ActionUpdateListing:
		return "update-listing"
	case ActionUpdateProfile:
		return "update-profile"
	default:
		return "unknown"
	}
}

// Target is the object an action applies to. Fields irrelevant to the
// action are nil.
type Target struct {
	User    *domain.User
	Listing *domain.Listing
}

// Decision is the outcome of Authorize. Err is nil iff Allowed.
type Decision struct {
	Allowed bool
	Reason  string
	Err     error
}

func allow(reason string) Decision {
	return Decision{Allowed: true, Reason: reason}
}

func deny(err error) Decision {
	return Decision{Reason: err.Error(), Err: err}
}

// Authorize decides whether caller may perform action on target. A nil
// caller is unauthenticated.
func Authorize(caller *domain.User, action Action, target Target) Decision {
	if caller == nil {
		return deny(domain.Unauthenticated("not authenticated"))
	}

	switch action {
	case ActionViewAdmin:
		if !caller.IsSuperuser {
			return deny(domain.Forbidden("administrator access required"))
		}
		return allow("caller is an administrator")

	case ActionBan, ActionUnban:
		if !caller.IsSuperuser {
			return deny(domain.Forbidden("administrator access required"))
		}
		verb := "ban"
		if action == ActionUnban {
			verb = "unban"
		}
		if t := target.User; t != nil {
			if t.ID == caller.ID {
				return deny(domain.InvalidArgument("administrators cannot %s themselves", verb))
			}
			if t.IsSuperuser {
				return deny(domain.InvalidArgument("cannot %s other administrators", verb))
			}
		}
		return allow("caller is an administrator")

	case ActionCreateListing:
		if caller.IsBanned {
			return deny(domain.Forbidden("banned users cannot create listings"))
		}
		return allow("caller is in good standing")

	case ActionUpdateListing:
		if caller.IsBanned {
			return deny(domain.Forbidden("banned users cannot update listings"))
		}
		if caller.IsSuperuser {
			return allow("caller is an administrator")
		}
		if target.Listing == nil || target.Listing.SellerID != caller.ID {
			return deny(domain.Forbidden("only the seller can update this listing"))
		}
		return allow("caller owns the listing")

	case ActionUpdateProfile:
		if caller.IsBanned {
			return deny(domain.Forbidden("banned users cannot update their profile"))
		}
		return allow("caller is in good standing")
	}

	return deny(domain.Forbidden("unknown action %s", action))
}
