package ratelimit

import (
	"net"
	"time"

	"github.com/Proton-105/storefront-account/pkg/config"
)

// Scope names a configured rule.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeSubmit Scope = "submit"
	ScopeEdit   Scope = "edit"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config    config.RateLimitConfig
	whitelist []net.IP
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	rules := &Rules{config: cfg}
	for _, raw := range cfg.Whitelist {
		if ip := net.ParseIP(raw); ip != nil {
			rules.whitelist = append(rules.whitelist, ip)
		}
	}
	return rules
}

// IsWhitelisted returns true if the client address bypasses rate limits.
func (r *Rules) IsWhitelisted(clientIP string) bool {
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false
	}
	for _, allowed := range r.whitelist {
		if allowed.Equal(ip) {
			return true
		}
	}
	return false
}

// Rule returns the limit for scope. ok is false when the rule is disabled.
func (r *Rules) Rule(scope Scope) (limit int, window time.Duration, ok bool) {
	var rule config.RateLimitRule
	switch scope {
	case ScopeGlobal:
		rule = r.config.Global
	case ScopeSubmit:
		rule = r.config.Submit
	case ScopeEdit:
		rule = r.config.Edit
	default:
		return 0, 0, false
	}

	if rule.Limit <= 0 || rule.Window <= 0 {
		return 0, 0, false
	}
	return rule.Limit, rule.Window, true
}

// MaxWindow is the longest configured window; older entries can be discarded.
func (r *Rules) MaxWindow() time.Duration {
	longest := time.Duration(0)
	for _, rule := range []config.RateLimitRule{r.config.Global, r.config.Submit, r.config.Edit} {
		if rule.Window > longest {
			longest = rule.Window
		}
	}
	return longest
}
