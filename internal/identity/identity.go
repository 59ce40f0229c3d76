// Package identity derives the single shopper identity a request acts as.
package identity

import (
	"strings"

	pkgerrors "github.com/shopsense/storefront-backend/pkg/errors"
)

const (
	UserPrefix  = "user:"
	GuestPrefix = "guest:"

	maxClientIDLength = 128
)

const (
	authRequiredMessage    = "authentication required"
	sessionMissingMessage  = "session not established"
	userIdentityForbidden  = "user identities can only come from a verified token"
	clientIDTooLongMessage = "session identifier is too long"
)

// Identity is an opaque, origin-namespaced shopper key.
type Identity string

func (i Identity) String() string { return string(i) }

// IsUser reports whether the identity belongs to an authenticated account.
func (i Identity) IsUser() bool { return strings.HasPrefix(string(i), UserPrefix) }

// IsGuest reports whether the identity is an anonymous browser session.
func (i Identity) IsGuest() bool { return strings.HasPrefix(string(i), GuestPrefix) }

// ID strips the namespace prefix.
func (i Identity) ID() string {
	s := string(i)
	switch {
	case strings.HasPrefix(s, UserPrefix):
		return strings.TrimPrefix(s, UserPrefix)
	case strings.HasPrefix(s, GuestPrefix):
		return strings.TrimPrefix(s, GuestPrefix)
	default:
		return s
	}
}

// User namespaces a verified account id.
func User(id string) Identity {
	return Identity(UserPrefix + strings.TrimSpace(id))
}

// Sources are the candidate identity values found on a request, one per
// origin. Empty strings mean "not supplied".
type Sources struct {
	// AuthUserID comes from a verified access token.
	AuthUserID string
	// Header is the client-attached session header.
	Header string
	// Query is the session_id query parameter.
	Query string
	// Body is a session_id or user_id body field.
	Body string
	// Path is a {user_id} route parameter.
	Path string
}

// Policy tunes resolution for a route.
type Policy struct {
	RequireAuth bool
}

// Resolve picks exactly one identity from src. A verified token wins, then the
// header, query, body and path values in that order. Client-supplied values are
// always namespaced as guests.
func Resolve(src Sources, policy Policy) (Identity, error) {
	if id := strings.TrimSpace(src.AuthUserID); id != "" {
		return User(id), nil
	}
	if policy.RequireAuth {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, authRequiredMessage)
	}

	for _, candidate := range []string{src.Header, src.Query, src.Body, src.Path} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		return Guest(candidate)
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, sessionMissingMessage)
}

// Guest namespaces a client-supplied identifier. A value already carrying the
// guest prefix is kept as is; a user-prefixed value is rejected.
func Guest(raw string) (Identity, error) {
	value := strings.TrimSpace(raw)
	if strings.HasPrefix(value, UserPrefix) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, userIdentityForbidden)
	}
	value = strings.TrimSpace(strings.TrimPrefix(value, GuestPrefix))
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, sessionMissingMessage)
	}
	if len(value) > maxClientIDLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, clientIDTooLongMessage)
	}
	return Identity(GuestPrefix + value), nil
}
