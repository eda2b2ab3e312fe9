// Package reputation resolves domain reputation through an external
// intelligence provider. Lookups are best-effort: when the provider is
// unconfigured, down, or rate-limited the package degrades to "no
// intelligence" rather than failing the analysis that asked.
package reputation

import "context"

// Result is one provider verdict for a domain.
type Result struct {
	Domain     string `json:"domain"`
	Malicious  int    `json:"malicious"`
	Suspicious int    `json:"suspicious"`
	Harmless   int    `json:"harmless"`
	Undetected int    `json:"undetected"`
}

// Flagged reports whether the verdict carries any malicious or
// suspicious engine votes.
func (r *Result) Flagged() bool {
	return r != nil && (r.Malicious > 0 || r.Suspicious > 0)
}

// Service is the capability the rule engine depends on. A nil Result
// means "no intelligence available" — implementations never surface
// lookup failures to callers.
type Service interface {
	// Enabled reports whether the service is configured to make
	// lookups at all. When false, LookupDomain returns nil without any
	// network activity.
	Enabled() bool

	// LookupDomain resolves the reputation of one domain, honoring ctx
	// for cancellation.
	LookupDomain(ctx context.Context, domain string) *Result
}

// Disabled returns a Service that is permanently off. Handy for tests
// and for deployments without an intelligence credential.
func Disabled() Service { return disabledService{} }

type disabledService struct{}

func (disabledService) Enabled() bool                                { return false }
func (disabledService) LookupDomain(context.Context, string) *Result { return nil }
