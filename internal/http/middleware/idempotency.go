// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements duplicate-submission protection for the public form
// endpoints (leads, newsletter). Clients may send an Idempotency-Key header
// with a POST; the middleware validates it, stashes it in the request
// context, and consults a lookup to detect a retry of an already accepted
// submission. Persistence stays behind a narrow SubmissionKeyLookup function
// so the middleware never touches the database directly.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients use to convey a stable
// key for a form submission, so browser retries and double-clicks can be
// deduplicated server-side.
const HeaderIdempotencyKey = "Idempotency-Key"

// Context keys used internally to stash submission-key state.
const (
	ctxKeySubmitKey    = "submit.key"
	ctxKeySubmitReplay = "submit.replay" // bool: true when the key was already used
	ctxKeyRateBypass   = "rate.bypass"   // bool: true to skip rate limiting
)

// GetSubmissionKey returns the validated key stored in the Gin context by
// SubmissionKeyValidator. The second return value indicates presence.
func GetSubmissionKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeySubmitKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether this request carries a key that already produced
// an accepted submission. Handlers may short-circuit and return the stored
// record instead of creating a duplicate.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeySubmitReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// SubmissionKeyOptions configures header validation for
// SubmissionKeyValidator. TTL enforcement lives in the lookup, which knows
// when a stored key expires.
type SubmissionKeyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative
	// RFC7230-like token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// SubmissionKeyLookup answers whether an accepted, still-valid submission
// exists for (scope, key) at the given time. Scope is the registered route
// of the request, so the same key on different forms counts as different
// submissions.
//
// Return exists=true when the prior submission should be replayed; return an
// error only for lookup failures (which must not block normal processing).
type SubmissionKeyLookup func(ctx context.Context, scope, key string, now time.Time) (exists bool, err error)

// SubmissionKeyValidator validates the Idempotency-Key header (if present),
// stashes it in the request context, and checks for a prior accepted
// submission via the supplied lookup. On a detected replay it marks the
// context so downstream components can:
//   - detect the replay via IsReplay
//   - bypass rate limiting (flag checked by the rate-limit middleware)
//
// Behavior:
//   - If the header is absent: the middleware is a no-op.
//   - If the header fails validation: responds 400 with a compact error body.
//   - If lookup reports a replay: sets replay + rate-bypass flags.
//   - Always invokes the next handler unless validation fails.
//
// The middleware does not serve a cached payload itself; handlers remain in
// control of how to answer a replayed submission.
func SubmissionKeyValidator(opts SubmissionKeyOptions, lookup SubmissionKeyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		// RFC-7230-ish token + common safe chars.
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeySubmitKey, key)

		if lookup != nil {
			scope := SubmissionScope(c)
			now := time.Now().UTC()

			if exists, _ := lookup(c.Request.Context(), scope, key, now); exists {
				c.Set(ctxKeySubmitReplay, true)
				c.Set(ctxKeyRateBypass, true) // retries should not burn quota
			}
		}

		c.Next()
	}
}

// SubmissionScope derives the dedup scope from the registered route, falling
// back to the raw URL path for unmatched requests. Handlers use the same
// scope when storing and replaying submission keys.
func SubmissionScope(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}
