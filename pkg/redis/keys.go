package redis

import "strings"

// All keys live under one namespace, e.g. "ss:rate_limit:login:ip:1.2.3.4".
const keyNamespace = "ss"

const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	sessionPrefix     = "session"
	eventsPrefix      = "user_events"
	explainPrefix     = "explain"
)

func (c *Client) IdempotencyKey(scope, id string) string {
	return joinKey(idempotencyPrefix, scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return joinKey(rateLimitPrefix, scope)
}

// AccessSessionKey holds the session record for one access token id.
func (c *Client) AccessSessionKey(accessID string) string {
	return joinKey(sessionPrefix, "access", accessID)
}

// RecentEventsKey is the capped list of recent behaviour events for an identity.
func (c *Client) RecentEventsKey(identity string) string {
	return joinKey(eventsPrefix, identity)
}

func (c *Client) ExplainKey(identity, productID string) string {
	return joinKey(explainPrefix, identity, productID)
}

// joinKey drops blank segments so a missing scope never yields "a::b".
func joinKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
