package loader

import (
	"errors"
	"fmt"
)

// Policy selects how the orchestrator treats a failed fetch or prepare
type Policy int

const (
	// FailFast aborts the whole loading cycle on the first failure.
	// Default, mirroring the shipped client: every manifest asset is
	// mandatory for gameplay.
	FailFast Policy = iota

	// SkipAndContinue fills the failed slot with a placeholder asset and
	// finishes the cycle
	SkipAndContinue

	// RetryWithBackoff retries a failed fetch with exponential backoff
	// before treating it as fatal. Cancelled fetches never retry.
	RetryWithBackoff
)

var policyNames = map[Policy]string{
	FailFast:         "fail_fast",
	SkipAndContinue:  "skip_and_continue",
	RetryWithBackoff: "retry_with_backoff",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ErrUnknownPolicy reports an unrecognized policy spelling
var ErrUnknownPolicy = errors.New("loader: unknown failure policy")

// PolicyFromString parses a config policy spelling
func PolicyFromString(s string) (Policy, error) {
	for p, name := range policyNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}
