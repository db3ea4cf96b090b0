package domain

import "strings"

// FailurePolicy enumerates supported behaviors for guarded routes when the
// rate-limit store cannot be read or written.
type FailurePolicy string

const (
	// FailurePolicyOpen admits traffic during store outages, trading protection for availability.
	FailurePolicyOpen FailurePolicy = "fail_open"
	// FailurePolicyClosed denies traffic during store outages, trading availability for protection.
	FailurePolicyClosed FailurePolicy = "fail_closed"
)

// ParseFailurePolicy normalises textual input into a supported policy,
// defaulting to fail-open when unspecified.
func ParseFailurePolicy(value string) FailurePolicy {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(FailurePolicyClosed), "closed", "deny":
		return FailurePolicyClosed
	default:
		return FailurePolicyOpen
	}
}

// FailsOpen reports whether traffic is admitted while the store is unavailable.
func (p FailurePolicy) FailsOpen() bool {
	return p != FailurePolicyClosed
}

// String returns the canonical textual form of the policy.
func (p FailurePolicy) String() string {
	if p == FailurePolicyClosed {
		return string(FailurePolicyClosed)
	}
	return string(FailurePolicyOpen)
}
