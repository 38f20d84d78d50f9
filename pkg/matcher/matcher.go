package matcher

import "github.com/noseyparker/noseyparker/pkg/types"

// Matcher scans content for rule matches.
type Matcher interface {
	// Match scans content against all loaded rules.
	// Returns matches with offsets and capture groups.
	Match(content []byte) ([]*types.Match, error)

	// MatchWithBlobID scans content with a known BlobID.
	MatchWithBlobID(content []byte, blobID types.BlobID) ([]*types.Match, error)

	// Close releases resources (e.g., Hyperscan scratch space).
	Close() error
}

// Cloner is implemented by matchers whose underlying scan state (e.g. a
// Hyperscan scratch region) is not safe to share across goroutines. A scan
// pipeline with N worker goroutines calls Clone once per worker to obtain an
// isolated Matcher that shares the compiled database but not scratch space.
// Matchers backed by Go's regexp package don't need this since *regexp.Regexp
// is already safe for concurrent use, so they don't implement Cloner.
type Cloner interface {
	Clone() (Matcher, error)
}

// Config for matcher initialization.
type Config struct {
	// Rules to compile and load into the matcher
	Rules []*types.Rule

	// MaxMatchesPerBlob limits matches returned per blob (0 = unlimited)
	MaxMatchesPerBlob int

	// SnippetLength controls how many bytes of surrounding context are
	// captured before and after a match; see pkg/matcher/context.go.
	SnippetLength int
}

// New creates a new Matcher with the given config. The concrete
// implementation is selected at build time by build tags: the default build
// uses Hyperscan, a wasm build uses pure Go regexp, and a vectorscan build
// tag selects Vectorscan. See matcher_default.go, matcher_wasm.go, and
// matcher_vectorscan.go.
