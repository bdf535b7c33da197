// Package ratelimit throttles MCP tool calls with one token bucket per tool.
package ratelimit

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// ToolPrefix is prepended to rule names to form MCP tool names.
const ToolPrefix = "relaysplit_"

// Rule is a token bucket budget: PerMinute refill and Burst capacity.
type Rule struct {
	PerMinute float64
	Burst     int
}

// Validate reports whether the rule can admit at least one call.
func (r Rule) Validate() error {
	if r.PerMinute <= 0 {
		return fmt.Errorf("per_minute must be positive, got %g", r.PerMinute)
	}
	if r.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", r.Burst)
	}
	return nil
}

// DefaultRules are the budgets applied when no override is configured.
// Splitting and benchmarking are the expensive tools and get the tightest budgets.
var DefaultRules = map[string]Rule{
	"split":  {PerMinute: 30, Burst: 5},
	"stats":  {PerMinute: 60, Burst: 10},
	"render": {PerMinute: 30, Burst: 5},
	"list":   {PerMinute: 60, Burst: 10},
	"bench":  {PerMinute: 5, Burst: 1},
}

// Limiter is a token bucket per key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   float64
	nowFunc func() time.Time
}

type bucket struct {
	tokens  float64
	updated time.Time
}

// NewLimiter returns a limiter whose buckets start full.
func NewLimiter(rule Rule) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rule.PerMinute / 60,
		burst:   float64(rule.Burst),
		nowFunc: time.Now,
	}
}

// Allow takes one token for key if one is available.
func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Reserve(key)
	return ok
}

// Reserve takes one token for key. When none is available it returns false
// and how long until the next token refills.
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, updated: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.updated).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.burst, b.tokens+l.rate*elapsed)
		b.updated = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, 0
	}
	wait := (1 - b.tokens) / l.rate
	return false, time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// ToolLimiters maps full tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters builds limiters from DefaultRules with overrides applied.
// Override keys are rule names ("split", "bench", ...).
func NewToolLimiters(overrides map[string]Rule) (ToolLimiters, error) {
	rules := make(map[string]Rule, len(DefaultRules))
	for name, rule := range DefaultRules {
		rules[name] = rule
	}
	for name, rule := range overrides {
		if _, ok := DefaultRules[name]; !ok {
			return nil, fmt.Errorf("unknown rate limited tool %q (valid: %s)", name, ruleNames())
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rate limit for %s: %w", name, err)
		}
		rules[name] = rule
	}

	limiters := make(ToolLimiters, len(rules))
	for name, rule := range rules {
		limiters[ToolPrefix+name] = NewLimiter(rule)
	}
	return limiters, nil
}

// CheckLimit returns an error when toolName is out of budget.
// Tools without a limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if allowed, wait := limiter.Reserve(toolName); !allowed {
		return fmt.Errorf("rate limit exceeded for %s, retry in %s", toolName, wait.Round(100*time.Millisecond))
	}
	return nil
}

func ruleNames() string {
	names := make([]string, 0, len(DefaultRules))
	for name := range DefaultRules {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprint(names)
}
