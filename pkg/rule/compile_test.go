package rule

import (
	"errors"
	"testing"

	"github.com/noseyparker/noseyparker/pkg/types"
)

func newTestRule(id, pattern string) *types.Rule {
	r := &types.Rule{
		ID:      id,
		Name:    id,
		Pattern: pattern,
	}
	r.StructuralID = r.ComputeStructuralID()
	return r
}

func TestCompile_Valid(t *testing.T) {
	rules := []*types.Rule{
		newTestRule("np.test.1", `AKIA(?P<key_id>[A-Z0-9]{16})`),
		newTestRule("np.test.2", `(?P<token>ghp_[a-zA-Z0-9]{36})`),
	}

	compiled, err := Compile(rules)
	if err != nil {
		t.Fatalf("Compile failed for valid rule set: %v", err)
	}
	if len(compiled.Rules) != 2 {
		t.Errorf("expected 2 rules, got %d", len(compiled.Rules))
	}

	r, ok := compiled.Lookup("np.test.1")
	if !ok || r.ID != "np.test.1" {
		t.Errorf("Lookup(np.test.1) failed: %v, %v", r, ok)
	}
	if _, ok := compiled.Lookup("np.unknown"); ok {
		t.Error("expected Lookup to fail for unknown rule ID")
	}
}

func TestCompile_DuplicateID(t *testing.T) {
	rules := []*types.Rule{
		newTestRule("np.test.1", `(?P<a>foo)`),
		newTestRule("np.test.1", `(?P<b>bar)`),
	}

	_, err := Compile(rules)
	if err == nil {
		t.Fatal("expected error for duplicate rule ID")
	}
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got: %v", err)
	}
}

func TestCompile_NoCaptureGroup(t *testing.T) {
	rules := []*types.Rule{
		newTestRule("np.test.1", `foo[0-9]+`),
	}

	_, err := Compile(rules)
	if err == nil {
		t.Fatal("expected error for pattern with no capture group")
	}
	if !errors.Is(err, ErrNoCaptureGroup) {
		t.Errorf("expected ErrNoCaptureGroup, got: %v", err)
	}
}

func TestCompile_InvalidPattern(t *testing.T) {
	rules := []*types.Rule{
		newTestRule("np.test.1", `[unterminated(`),
	}

	_, err := Compile(rules)
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestCompile_FailsAtomically(t *testing.T) {
	// The second rule is invalid; Compile must return nil rather than a
	// partially populated CompiledRuleset, so callers never load half a
	// rule set into a datastore.
	rules := []*types.Rule{
		newTestRule("np.test.1", `(?P<a>foo)`),
		newTestRule("np.test.1", `(?P<b>bar)`),
	}

	compiled, err := Compile(rules)
	if err == nil {
		t.Fatal("expected error for duplicate ID")
	}
	if compiled != nil {
		t.Error("expected nil CompiledRuleset on error")
	}
}

func TestCompile_Empty(t *testing.T) {
	compiled, err := Compile(nil)
	if err != nil {
		t.Fatalf("Compile failed for empty rule set: %v", err)
	}
	if len(compiled.Rules) != 0 {
		t.Errorf("expected 0 rules, got %d", len(compiled.Rules))
	}
}
