// Package policy provides tool authorization for the flow engine's
// ToolOrchestrator: profiles, allow/deny lists, and named groups for
// gating which tools a pipeline step may invoke.
package policy

import "strings"

// Profile is a pre-configured access level a Policy can build on.
type Profile string

const (
	// ProfileMinimal denies every tool unless explicitly allowed.
	ProfileMinimal Profile = "minimal"

	// ProfileFull allows every tool not explicitly denied.
	ProfileFull Profile = "full"
)

// Policy combines a base profile with explicit allow/deny lists. Deny
// always takes precedence over allow.
type Policy struct {
	Profile Profile
	Allow   []string
	Deny    []string
}

// NewPolicy starts a Policy based on profile.
func NewPolicy(profile Profile) *Policy {
	return &Policy{Profile: profile}
}

// WithAllow appends tools to the allow list and returns the policy for
// chaining.
func (p *Policy) WithAllow(tools ...string) *Policy {
	p.Allow = append(p.Allow, tools...)
	return p
}

// WithDeny appends tools to the deny list and returns the policy for
// chaining.
func (p *Policy) WithDeny(tools ...string) *Policy {
	p.Deny = append(p.Deny, tools...)
	return p
}

// Decision explains why a tool was allowed or denied.
type Decision struct {
	Allowed bool
	Tool    string
	Reason  string
}

// Resolver evaluates a Policy against named tool groups, expanding
// "group:name" references before checking allow/deny membership.
type Resolver struct {
	policy *Policy
	groups map[string][]string
}

// NewResolver builds a Resolver gating every decision by policy. A nil
// policy denies everything.
func NewResolver(p *Policy) *Resolver {
	return &Resolver{policy: p, groups: make(map[string][]string)}
}

// AddGroup registers a named group of tools that Allow/Deny entries may
// reference as "group:name".
func (r *Resolver) AddGroup(name string, tools []string) {
	r.groups[name] = tools
}

// Decide reports whether toolName is allowed under the resolver's policy.
func (r *Resolver) Decide(toolName string) Decision {
	name := strings.ToLower(strings.TrimSpace(toolName))
	decision := Decision{Tool: name, Reason: "no matching allow rule"}

	if r.policy == nil {
		decision.Reason = "no policy configured"
		return decision
	}

	denied := r.expand(r.policy.Deny)
	for _, d := range denied {
		if matches(d, name) {
			decision.Reason = "denied by rule: " + d
			return decision
		}
	}

	if r.policy.Profile == ProfileFull {
		decision.Allowed = true
		decision.Reason = "allowed by profile full"
		return decision
	}

	allowed := r.expand(r.policy.Allow)
	for _, a := range allowed {
		if matches(a, name) {
			decision.Allowed = true
			decision.Reason = "allowed by rule: " + a
			return decision
		}
	}

	return decision
}

// IsAllowed is a convenience wrapper around Decide.
func (r *Resolver) IsAllowed(toolName string) bool {
	return r.Decide(toolName).Allowed
}

func (r *Resolver) expand(items []string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, item := range items {
		normalized := strings.ToLower(strings.TrimSpace(item))
		if tools, ok := r.groups[normalized]; ok {
			for _, t := range tools {
				t = strings.ToLower(t)
				if !seen[t] {
					seen[t] = true
					result = append(result, t)
				}
			}
			continue
		}
		if !seen[normalized] {
			seen[normalized] = true
			result = append(result, normalized)
		}
	}
	return result
}

func matches(pattern, toolName string) bool {
	if pattern == "*" {
		return true
	}
	return pattern == toolName
}
