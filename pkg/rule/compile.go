package rule

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/noseyparker/noseyparker/pkg/types"
)

// Sentinel errors returned by Compile, wrapped with the offending rule ID so
// callers can match on them with errors.Is while still getting context.
var (
	ErrDuplicateID    = errors.New("duplicate rule id")
	ErrNoCaptureGroup = errors.New("rule pattern has no capture group")
	ErrEngineCompile  = errors.New("rule pattern failed to compile")
)

// CompiledRuleset is a validated set of rules: every ID is unique, every
// pattern compiles, and every pattern has at least one capture group to
// extract as match content. Loading code should always go through Compile
// rather than trusting a raw []*types.Rule from disk.
type CompiledRuleset struct {
	Rules []*types.Rule
	byID  map[string]*types.Rule
}

// Lookup returns the rule with the given ID, if present.
func (c *CompiledRuleset) Lookup(id string) (*types.Rule, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Compile validates a rule set as a whole and returns a CompiledRuleset.
// It fails fast on the first invalid rule: no partial result is returned,
// so a caller loading rules into a datastore can rely on an error here
// meaning nothing was loaded.
func Compile(rules []*types.Rule) (*CompiledRuleset, error) {
	byID := make(map[string]*types.Rule, len(rules))

	for _, r := range rules {
		if err := ValidateRule(r); err != nil {
			return nil, err
		}

		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		byID[r.ID] = r

		// ValidateRule already confirmed the pattern compiles under the
		// stdlib regexp engine and has a capture group; re-verifying here
		// for a different error class would require an actual matcher
		// engine instance (Hyperscan/vectorscan), which isn't available at
		// rule-load time. Record the compile failure class anyway so future
		// engine-specific validation has somewhere to report into.
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return nil, fmt.Errorf("%w: rule %s: %v", ErrEngineCompile, r.ID, err)
		}
	}

	return &CompiledRuleset{Rules: rules, byID: byID}, nil
}
