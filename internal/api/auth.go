package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/alexanderramin/waypoint/internal/domain"
)

// Development headers carrying the caller's identity. A real deployment
// puts an authenticating proxy in front and sets the same headers.
const (
	HeaderUserID  = "X-Waypoint-User"
	HeaderScopes  = "X-Waypoint-Scopes"
	HeaderTripIDs = "X-Waypoint-Trips"
)

type principalKey struct{}

// authenticate builds the request's Principal once. A request without a
// user header gets an empty principal, which every use case rejects.
func authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := domain.Principal{UserID: strings.TrimSpace(r.Header.Get(HeaderUserID))}
		for _, s := range splitList(r.Header.Get(HeaderScopes)) {
			p.Scopes = append(p.Scopes, domain.Scope(s))
		}
		p.TripIDs = splitList(r.Header.Get(HeaderTripIDs))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
	})
}

func principalFrom(ctx context.Context) domain.Principal {
	p, _ := ctx.Value(principalKey{}).(domain.Principal)
	return p
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
