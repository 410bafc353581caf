package domain

import "slices"

// Scope is a capability granted to a caller.
type Scope string

const (
	ScopeTripRead    Scope = "trip:read"
	ScopeTripWrite   Scope = "trip:write"
	ScopeFlag        Scope = "slot:flag"
	ScopeAdminReview Scope = "admin:review"
)

// Principal is the explicit capability object threaded through engine calls.
// It is built once at the edge; nothing downstream inspects ambient state.
type Principal struct {
	UserID string
	Scopes []Scope
	// TripIDs limits the principal to specific trips. Empty means any trip
	// the scopes allow, used by system actors such as the scanner.
	TripIDs []string
}

// SystemPrincipal is used by periodic jobs.
func SystemPrincipal() Principal {
	return Principal{
		UserID: "system",
		Scopes: []Scope{ScopeTripRead, ScopeTripWrite},
	}
}

func (p Principal) Has(scope Scope) bool {
	return slices.Contains(p.Scopes, scope)
}

func (p Principal) CanAccessTrip(tripID string) bool {
	return len(p.TripIDs) == 0 || slices.Contains(p.TripIDs, tripID)
}

// Require returns a FORBIDDEN error unless the principal holds scope on tripID.
// An empty tripID checks the scope alone.
func (p Principal) Require(scope Scope, tripID string) error {
	if p.UserID == "" {
		return NewForbiddenError("anonymous caller")
	}
	if !p.Has(scope) {
		return NewForbiddenError("missing scope " + string(scope))
	}
	if tripID != "" && !p.CanAccessTrip(tripID) {
		return NewForbiddenError("no access to trip " + tripID)
	}
	return nil
}
