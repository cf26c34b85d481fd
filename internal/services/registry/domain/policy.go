package domain

import (
	"fmt"
	"strings"
)

// CopyPolicy decides whether a caller may copy overrides out of another
// author's mutation.
type CopyPolicy string

const (
	// CopyPolicyOpen lets any authenticated caller read any source.
	CopyPolicyOpen CopyPolicy = "open"
	// CopyPolicyOwnerOnly limits sources to the caller's own namespace.
	CopyPolicyOwnerOnly CopyPolicy = "owner-only"
)

// ParseCopyPolicy parses a configured policy name. Empty means open.
func ParseCopyPolicy(value string) (CopyPolicy, error) {
	switch CopyPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", CopyPolicyOpen:
		return CopyPolicyOpen, nil
	case CopyPolicyOwnerOnly:
		return CopyPolicyOwnerOnly, nil
	default:
		return "", fmt.Errorf("unknown copy policy %q", value)
	}
}

// AllowsSource reports whether caller may read overrides from sourceAuthorID.
func (p CopyPolicy) AllowsSource(caller, sourceAuthorID string) bool {
	if p == CopyPolicyOwnerOnly {
		return caller == sourceAuthorID
	}
	return true
}
