package testutil

import (
	"net/http"
	"time"

	id "attestor/pkg/domain"
	"attestor/pkg/requestcontext"
)

// WithCaller adds a caller identity to the request context, simulating what
// the auth middleware does for authenticated requests. Invalid identities are
// silently ignored.
func WithCaller(req *http.Request, identity string) *http.Request {
	caller, err := id.ParseIdentity(identity)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithCaller(req.Context(), caller))
}

// WithRequestTime pins the request time so assertions on timestamps are
// deterministic.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
