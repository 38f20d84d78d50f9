// Package pipeline drives the end-to-end scan: one goroutine per active
// enumerator feeding a bounded channel of blobs, a fixed pool of worker
// goroutines matching blobs against rules, and a single writer goroutine
// persisting results to a Store. It generalizes the sequential
// enumerate-match-store loop used throughout cmd/noseyparker into a
// concurrent pipeline, using the same errgroup/context cancellation idiom
// pkg/enum/filesystem.go already uses for its parallel file readers.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/noseyparker/noseyparker/pkg/enum"
	"github.com/noseyparker/noseyparker/pkg/matcher"
	"github.com/noseyparker/noseyparker/pkg/store"
	"github.com/noseyparker/noseyparker/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Blob metadata retention modes, mirroring --blob-metadata: "all" records
// blob size and provenance for every blob scanned, "matching" (the default)
// only for blobs with at least one match, "none" records neither.
const (
	BlobMetadataAll      = "all"
	BlobMetadataMatching = "matching"
	BlobMetadataNone     = "none"
)

// Counters tracks pipeline progress with atomics so every worker and the
// writer goroutine can update them without a lock.
type Counters struct {
	BlobsSeen     atomic.Int64
	BlobsMatched  atomic.Int64
	MatchesFound  atomic.Int64
	NewFindings   atomic.Int64
	RepeatMatches atomic.Int64
	BytesSeen     atomic.Int64
	BlobsSkipped  atomic.Int64
}

// blobJob is one unit of work handed from an enumerator goroutine to a
// worker goroutine.
type blobJob struct {
	content []byte
	blobID  types.BlobID
	prov    types.Provenance
}

// matchBatch is one unit of work handed from a worker goroutine to the
// single writer goroutine: all matches found for one blob, plus the blob's
// own metadata so the writer can store the blob/provenance rows too.
type matchBatch struct {
	blobID  types.BlobID
	size    int64
	prov    types.Provenance
	matches []*types.Match
}

// Config configures a pipeline run.
type Config struct {
	// Enumerators are run concurrently, each in its own goroutine, feeding
	// the same shared blob channel.
	Enumerators []enum.Enumerator

	// Matcher is cloned once per worker via matcher.Cloner when the
	// concrete implementation supports it (e.g. Hyperscan, whose scratch
	// space isn't safe for concurrent use); matchers that don't implement
	// Cloner are assumed safe to share (e.g. the regexp-based backends,
	// since *regexp.Regexp is inherently concurrency-safe).
	Matcher matcher.Matcher

	// Rules is the rule set in use, needed by the writer to resolve a
	// match's RuleID to its StructuralID when computing finding IDs.
	Rules []*types.Rule

	// Store persists blobs, provenance, matches, and findings. All writes
	// happen on the single writer goroutine, so Store implementations
	// don't need to be safe for concurrent writes from multiple callers.
	Store store.Store

	// NumWorkers is the size of the scan worker pool. Defaults to
	// runtime.NumCPU() when <= 0.
	NumWorkers int

	// Incremental, when true, skips blobs already present in Store instead
	// of matching and re-storing them.
	Incremental bool

	// BlobMetadataMode controls which blobs get a blobs/provenance row.
	// Empty defaults to BlobMetadataMatching.
	BlobMetadataMode string

	// BlobChannelSize and BatchChannelSize bound the pipeline's internal
	// channels, limiting how far enumeration or matching can run ahead of
	// a slower downstream stage. Default to a small multiple of
	// NumWorkers when <= 0.
	BlobChannelSize  int
	BatchChannelSize int
}

// Run drives one complete scan: enumerate, match, and persist, honoring ctx
// cancellation cooperatively at every stage boundary. It returns once every
// enumerator has finished, every blob has been matched, and every match
// batch has been written — or as soon as any stage returns an error, in
// which case in-flight work is abandoned and the first error is returned.
func Run(ctx context.Context, cfg Config) (*Counters, error) {
	if cfg.Matcher == nil {
		return nil, fmt.Errorf("pipeline: matcher is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline: store is required")
	}
	if len(cfg.Enumerators) == 0 {
		return nil, fmt.Errorf("pipeline: at least one enumerator is required")
	}

	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
		if numWorkers < 1 {
			numWorkers = 1
		}
	}

	blobChSize := cfg.BlobChannelSize
	if blobChSize <= 0 {
		blobChSize = numWorkers * 4
	}
	batchChSize := cfg.BatchChannelSize
	if batchChSize <= 0 {
		batchChSize = numWorkers * 4
	}

	ruleMap := make(map[string]*types.Rule, len(cfg.Rules))
	for _, r := range cfg.Rules {
		ruleMap[r.ID] = r
	}

	counters := &Counters{}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)

	blobCh := make(chan blobJob, blobChSize)
	batchCh := make(chan matchBatch, batchChSize)

	// Enumeration stage: one goroutine per enumerator, all feeding the
	// shared blob channel. blobCh is closed once every enumerator has
	// finished (or one has failed), so the worker pool below knows when
	// to stop ranging over it.
	g.Go(func() error {
		defer close(blobCh)
		eg, egCtx := errgroup.WithContext(ctx)
		for _, e := range cfg.Enumerators {
			e := e
			eg.Go(func() error {
				return e.Enumerate(egCtx, func(content []byte, blobID types.BlobID, prov types.Provenance) error {
					job := blobJob{content: content, blobID: blobID, prov: prov}
					select {
					case blobCh <- job:
						return nil
					case <-egCtx.Done():
						return egCtx.Err()
					}
				})
			})
		}
		return eg.Wait()
	})

	// Matching stage: a fixed pool of worker goroutines, each with its
	// own Matcher (cloned via Cloner when the backend needs isolated scan
	// state). batchCh is closed once every worker has drained blobCh, so
	// the writer stage below knows when to stop ranging over it.
	g.Go(func() error {
		defer close(batchCh)
		wg, wgCtx := errgroup.WithContext(ctx)
		for i := 0; i < numWorkers; i++ {
			workerMatcher, err := workerMatcherFor(cfg.Matcher)
			if err != nil {
				return fmt.Errorf("allocating worker matcher: %w", err)
			}
			wg.Go(func() error {
				for job := range blobCh {
					counters.BlobsSeen.Add(1)
					counters.BytesSeen.Add(int64(len(job.content)))

					if cfg.Incremental {
						exists, err := cfg.Store.BlobExists(job.blobID)
						if err != nil {
							return fmt.Errorf("checking blob %s: %w", job.blobID, err)
						}
						if exists {
							counters.BlobsSkipped.Add(1)
							continue
						}
					}

					matches, err := workerMatcher.MatchWithBlobID(job.content, job.blobID)
					if err != nil {
						return fmt.Errorf("matching blob %s: %w", job.blobID, err)
					}

					for _, m := range matches {
						startLine, startCol := types.ComputeLineColumn(job.content, int(m.Location.Offset.Start))
						endLine, endCol := types.ComputeLineColumn(job.content, int(m.Location.Offset.End))
						m.Location.Source.Start.Line = startLine
						m.Location.Source.Start.Column = startCol
						m.Location.Source.End.Line = endLine
						m.Location.Source.End.Column = endCol
					}

					if len(matches) > 0 {
						counters.BlobsMatched.Add(1)
					}

					batch := matchBatch{
						blobID:  job.blobID,
						size:    int64(len(job.content)),
						prov:    job.prov,
						matches: matches,
					}
					select {
					case batchCh <- batch:
					case <-wgCtx.Done():
						return wgCtx.Err()
					}
				}
				return nil
			})
		}
		return wg.Wait()
	})

	blobMetadataMode := cfg.BlobMetadataMode
	if blobMetadataMode == "" {
		blobMetadataMode = BlobMetadataMatching
	}

	// Writer stage: the single goroutine allowed to touch cfg.Store.
	g.Go(func() error {
		for batch := range batchCh {
			recordBlob := blobMetadataMode == BlobMetadataAll ||
				(blobMetadataMode == BlobMetadataMatching && len(batch.matches) > 0)

			if recordBlob {
				if err := cfg.Store.AddBlob(batch.blobID, batch.size); err != nil {
					return fmt.Errorf("storing blob: %w", err)
				}
				if err := cfg.Store.AddProvenance(batch.blobID, batch.prov); err != nil {
					return fmt.Errorf("storing provenance: %w", err)
				}
			}

			for _, m := range batch.matches {
				if err := cfg.Store.AddMatch(m); err != nil {
					return fmt.Errorf("storing match: %w", err)
				}
				counters.MatchesFound.Add(1)

				rule, ok := ruleMap[m.RuleID]
				if !ok {
					return fmt.Errorf("rule not found: %s", m.RuleID)
				}
				findingID := m.FindingID
				if findingID == "" {
					findingID = types.ComputeFindingID(rule.StructuralID, m.Groups)
				}

				exists, err := cfg.Store.FindingExists(findingID)
				if err != nil {
					return fmt.Errorf("checking finding: %w", err)
				}
				if exists {
					counters.RepeatMatches.Add(1)
					continue
				}

				finding := &types.Finding{
					ID:     findingID,
					RuleID: m.RuleID,
					Groups: m.Groups,
				}
				if err := cfg.Store.AddFinding(finding); err != nil {
					return fmt.Errorf("storing finding: %w", err)
				}
				counters.NewFindings.Add(1)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if origCtx.Err() != nil {
			return counters, origCtx.Err()
		}
		return counters, err
	}
	if origCtx.Err() != nil {
		return counters, origCtx.Err()
	}
	return counters, nil
}

// workerMatcherFor returns a Matcher suitable for one worker goroutine's
// exclusive use: a clone for matchers implementing Cloner (whose scan
// state isn't safe to share across goroutines), or the shared Matcher
// itself otherwise.
func workerMatcherFor(m matcher.Matcher) (matcher.Matcher, error) {
	if cloner, ok := m.(matcher.Cloner); ok {
		return cloner.Clone()
	}
	return m, nil
}
