// Package ratelimit implements the redis-backed admission counters: one
// process-wide throttle plus per-endpoint fixed-window limiters keyed by
// user id (or forwarded IP for anonymous callers).
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	globalKey    = "global_rate_limit"
	globalLimit  = 100
	globalWindow = 60 * time.Second
)

// Limiter is a fixed-window counter: the first hit on a key sets the window
// expiry, and hits past the point budget inside the window are rejected.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	points int64
	window time.Duration
}

// New creates a limiter allowing points hits per window per key.
func New(rdb *redis.Client, prefix string, points int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, prefix: prefix, points: int64(points), window: window}
}

// Allow consumes one point for key. It fails open on redis errors so a
// limiter-store outage degrades to unlimited rather than a dead API.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	full := fmt.Sprintf("%s:{%s}", l.prefix, key)
	count, err := l.rdb.Incr(ctx, full).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, full, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= l.points, nil
}

// Prefix returns the limiter's key prefix, used to report which limiter
// tripped.
func (l *Limiter) Prefix() string { return l.prefix }

// Global is the process-wide throttle applied before anything else: a single
// shared counter, independent of identity.
type Global struct {
	rdb *redis.Client
}

// NewGlobal creates the shared throttle.
func NewGlobal(rdb *redis.Client) *Global {
	return &Global{rdb: rdb}
}

// Allow consumes one point from the shared counter.
func (g *Global) Allow(ctx context.Context) (bool, error) {
	count, err := g.rdb.Incr(ctx, globalKey).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := g.rdb.Expire(ctx, globalKey, globalWindow).Err(); err != nil {
			return true, err
		}
	}
	return count <= globalLimit, nil
}

// Set holds every endpoint limiter, mirroring the per-route budgets.
type Set struct {
	TemplatePut              *Limiter
	TierlistPut              *Limiter
	ChangeTemplateVisibility *Limiter
	ChangeTierlistVisibility *Limiter
	DeleteTemplate           *Limiter
	DeleteTierlist           *Limiter
	ImagePost                *Limiter
	ImagePostDaily           *Limiter
	ImageDelete              *Limiter
	ImageGet                 *Limiter
	TemplateGetBurst         *Limiter
	TemplateGetSlow          *Limiter
	TierlistGetBurst         *Limiter
	TierlistGetSlow          *Limiter
	UserImages               *Limiter
	ProxyBurst               *Limiter
	ProxySlow                *Limiter
	CountImages              *Limiter
}

// NewSet builds the full limiter table.
func NewSet(rdb *redis.Client) *Set {
	return &Set{
		TemplatePut:              New(rdb, "template-put", 20, 20*time.Second),
		TierlistPut:              New(rdb, "tierlist-put", 20, 20*time.Second),
		ChangeTemplateVisibility: New(rdb, "change-template-visibility", 20, 20*time.Second),
		ChangeTierlistVisibility: New(rdb, "change-tierlist-visibility", 20, 20*time.Second),
		DeleteTemplate:           New(rdb, "delete-template", 5, time.Second),
		DeleteTierlist:           New(rdb, "delete-tierlist", 5, time.Second),
		ImagePost:                New(rdb, "image-post", 1, 3*time.Second),
		ImagePostDaily:           New(rdb, "image-post-daily", 150, 86400*time.Second),
		ImageDelete:              New(rdb, "image-delete", 5, time.Second),
		ImageGet:                 New(rdb, "image-get", 50, 20*time.Second),
		TemplateGetBurst:         New(rdb, "template-get-burst", 50, 15*time.Second),
		TemplateGetSlow:          New(rdb, "template-get-slow", 12, 60*time.Second),
		TierlistGetBurst:         New(rdb, "tierlist-get-burst", 50, 15*time.Second),
		TierlistGetSlow:          New(rdb, "tierlist-get-slow", 12, 60*time.Second),
		UserImages:               New(rdb, "user-images", 1, 15*time.Second),
		ProxyBurst:               New(rdb, "proxy-burst", 100, 20*time.Second),
		ProxySlow:                New(rdb, "proxy-slow", 5, 10*time.Second),
		CountImages:              New(rdb, "count-images", 1, 3*time.Second),
	}
}

// ClientKey picks the limiter key for a request: the authenticated user id,
// else the forwarded IP, else the remote address.
func ClientKey(r *http.Request, userID string) string {
	if userID != "" {
		return userID
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
