package alerting

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// CooldownTracker is the per-rule gate between a breach and a fire. TryFire is
// atomic per rule: of any number of concurrent callers inside one window,
// exactly one sees true.
type CooldownTracker interface {
	TryFire(ctx context.Context, ruleID string, at time.Time, cooldown time.Duration) (bool, error)
	// CoolingUntil reports the end of the current window, if the rule is cooling at `at`.
	CoolingUntil(ctx context.Context, ruleID string, at time.Time) (time.Time, bool)
}

type gate struct {
	mu      sync.Mutex
	cooling bool
	until   time.Time
}

// MemoryCooldown measures windows on the sample clock, which makes replays of
// recorded streams behave exactly like the live run.
type MemoryCooldown struct {
	gates sync.Map // rule id -> *gate
}

func NewMemoryCooldown() *MemoryCooldown {
	return &MemoryCooldown{}
}

func (m *MemoryCooldown) gate(ruleID string) *gate {
	g, _ := m.gates.LoadOrStore(ruleID, &gate{})
	return g.(*gate)
}

func (m *MemoryCooldown) TryFire(_ context.Context, ruleID string, at time.Time, cooldown time.Duration) (bool, error) {
	g := m.gate(ruleID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if cooldown <= 0 {
		return true, nil
	}
	if g.cooling && at.Before(g.until) {
		return false, nil
	}
	g.cooling = true
	g.until = at.Add(cooldown)
	return true, nil
}

func (m *MemoryCooldown) CoolingUntil(_ context.Context, ruleID string, at time.Time) (time.Time, bool) {
	g := m.gate(ruleID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cooling && at.Before(g.until) {
		return g.until, true
	}
	return time.Time{}, false
}

// RedisCooldown shares windows between engine replicas with SET NX PX. The
// window runs on the Redis clock, not the sample clock.
type RedisCooldown struct {
	client *redis.Client
	prefix string
}

func NewRedisCooldown(client *redis.Client, prefix string) *RedisCooldown {
	if prefix == "" {
		prefix = "alert-engine:cooldown:"
	}
	return &RedisCooldown{client: client, prefix: prefix}
}

func (r *RedisCooldown) TryFire(ctx context.Context, ruleID string, at time.Time, cooldown time.Duration) (bool, error) {
	if cooldown <= 0 {
		return true, nil
	}
	return r.client.SetNX(ctx, r.prefix+ruleID, strconv.FormatInt(at.UnixNano(), 10), cooldown).Result()
}

func (r *RedisCooldown) CoolingUntil(ctx context.Context, ruleID string, at time.Time) (time.Time, bool) {
	ttl, err := r.client.PTTL(ctx, r.prefix+ruleID).Result()
	if err != nil || ttl <= 0 {
		return time.Time{}, false
	}
	return at.Add(ttl), true
}
