// Package identity provides anonymous per-device identity primitives and the
// permission level that gates the cross-participant aggregation view.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"time"

	"github.com/mbertsch/chatlab/internal/store"
)

const (
	AnonCookieName   = "chatlab_anon_id"
	AdminTokenHeader = "X-Chatlab-Admin-Token"
	anonCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const (
	memberKey contextKey = iota
	adminKey
)

var anonIDPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// MemberFromContext extracts the active member from the request context.
func MemberFromContext(ctx context.Context) store.Member {
	if m, ok := ctx.Value(memberKey).(store.Member); ok {
		return m
	}
	return store.Member{}
}

// IsAdmin reports whether the request carries an elevated permission level.
func IsAdmin(ctx context.Context) bool {
	if v, ok := ctx.Value(adminKey).(bool); ok {
		return v
	}
	return false
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func deriveName(memberID string) string {
	if len(memberID) > 13 {
		return "anon-" + memberID[len(memberID)-8:]
	}
	return "anon-member"
}

func ensureMember(ctx context.Context, repo store.RecordStore, memberID string) (store.Member, error) {
	existing, err := repo.GetMember(ctx, memberID)
	if err != nil {
		return store.Member{}, err
	}

	member := store.Member{ID: memberID, Name: deriveName(memberID)}
	if existing != nil && existing.Name != "" {
		member.Name = existing.Name
	}
	if err := repo.UpsertMember(ctx, &member); err != nil {
		return store.Member{}, err
	}
	return member, nil
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		setAnonCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateAnonID()
	if err != nil {
		return "", err
	}
	setAnonCookie(w, id, isDev)
	return id, nil
}

func setAnonCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func isAdminRequest(r *http.Request, adminToken string) bool {
	if adminToken == "" {
		return false
	}
	supplied := r.Header.Get(AdminTokenHeader)
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(adminToken)) == 1
}

// Middleware injects anonymous per-device identity, ensures a member row
// exists, and marks requests carrying the configured admin token as elevated.
func Middleware(repo store.RecordStore, adminToken string, isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			memberID, err := getOrCreateAnonID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish anonymous identity"}`, http.StatusInternalServerError)
				return
			}

			member, err := ensureMember(r.Context(), repo, memberID)
			if err != nil {
				http.Error(w, `{"error":"failed to initialize member"}`, http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), memberKey, member)
			ctx = context.WithValue(ctx, adminKey, isAdminRequest(r, adminToken))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IPFromRequest returns a normalized remote IP for optional request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
