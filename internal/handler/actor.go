package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/josh-kwaku/wallet-ledger/internal/auth"
	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

// actorFromRequest identifies the caller for audit purposes. Protected
// routes carry claims; public ones leave the user fields empty.
func actorFromRequest(r *http.Request) domain.Actor {
	actor := domain.Actor{
		RequestID: logging.RequestIDFromContext(r.Context()),
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
		Endpoint:  r.URL.Path,
		Method:    r.Method,
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		actor.UserID = claims.UserID
		actor.Email = claims.Email
	}
	return actor
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
