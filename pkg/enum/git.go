package enum

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/noseyparker/noseyparker/pkg/types"
)

// Blob provenance modes for full-history enumeration, mirroring
// --git-blob-provenance: "first-seen" walks reachable commits in
// chronological order and records the commit that first introduced each
// blob; "minimal" uses the faster native git path and reports no commit
// metadata at all.
const (
	BlobProvenanceFirstSeen = "first-seen"
	BlobProvenanceMinimal   = "minimal"
)

// GitEnumerator enumerates blobs from a git repository.
type GitEnumerator struct {
	config Config
	// CommitRef optionally specifies a specific commit to enumerate (defaults to HEAD).
	// Only consulted when WalkAll is false.
	CommitRef string
	// WalkAll, when true, enumerates every blob reachable from any ref
	// instead of just the tree at CommitRef.
	WalkAll bool
	// BlobProvenanceMode controls how WalkAll enumeration attributes
	// commits to blobs. Empty defaults to BlobProvenanceFirstSeen.
	BlobProvenanceMode string
}

// NewGitEnumerator creates a new git enumerator.
func NewGitEnumerator(config Config) *GitEnumerator {
	return &GitEnumerator{
		config:    config,
		CommitRef: "HEAD",
	}
}

// Enumerate yields unique blobs from the repository. When WalkAll is set it
// walks the full set of reachable commits; otherwise it walks the single
// tree named by CommitRef.
func (e *GitEnumerator) Enumerate(ctx context.Context, callback func(content []byte, blobID types.BlobID, prov types.Provenance) error) error {
	if e.WalkAll {
		if e.BlobProvenanceMode == BlobProvenanceMinimal && gitBinaryAvailable() {
			return e.enumerateAllHistoryNative(ctx, callback)
		}
		return e.enumerateAllHistoryFirstSeen(ctx, callback)
	}
	return e.enumerateSingleCommit(ctx, callback)
}

// enumerateSingleCommit walks the tree at CommitRef (defaulting to HEAD)
// and yields each unique blob found there.
func (e *GitEnumerator) enumerateSingleCommit(ctx context.Context, callback func(content []byte, blobID types.BlobID, prov types.Provenance) error) error {
	// Open repository
	repo, err := git.PlainOpen(e.config.Root)
	if err != nil {
		return fmt.Errorf("failed to open git repository: %w", err)
	}

	// Resolve commit reference
	ref, err := repo.ResolveRevision(plumbing.Revision(e.CommitRef))
	if err != nil {
		return fmt.Errorf("failed to resolve ref %s: %w", e.CommitRef, err)
	}

	// Get the commit
	commit, err := repo.CommitObject(*ref)
	if err != nil {
		return fmt.Errorf("failed to get commit: %w", err)
	}

	// Get commit tree
	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("failed to get tree: %w", err)
	}

	// Track seen blobs to avoid duplicates
	seen := make(map[plumbing.Hash]bool)

	// Walk the tree
	err = tree.Files().ForEach(func(f *object.File) error {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Skip if already seen
		if seen[f.Hash] {
			return nil
		}
		seen[f.Hash] = true

		// Apply size limit
		if e.config.MaxFileSize > 0 && f.Size > e.config.MaxFileSize {
			return nil
		}

		// Get file content
		content, err := f.Contents()
		if err != nil {
			return fmt.Errorf("failed to get contents of %s: %w", f.Name, err)
		}

		// Skip binary files
		if isBinary([]byte(content)) {
			return nil
		}

		// Compute blob ID
		blobID := types.ComputeBlobID([]byte(content))

		// Create git provenance with commit metadata
		commitMeta := &types.CommitMetadata{
			CommitID:           commit.Hash.String(),
			AuthorName:         commit.Author.Name,
			AuthorEmail:        commit.Author.Email,
			AuthorTimestamp:    commit.Author.When,
			CommitterName:      commit.Committer.Name,
			CommitterEmail:     commit.Committer.Email,
			CommitterTimestamp: commit.Committer.When,
			Message:            commit.Message,
		}

		prov := types.GitProvenance{
			RepoPath: e.config.Root,
			Commit:   commitMeta,
			BlobPath: f.Name,
		}

		// Yield to callback
		return callback([]byte(content), blobID, prov)
	})

	if err != nil {
		return fmt.Errorf("failed to walk tree: %w", err)
	}

	return nil
}

// enumerateAllHistoryFirstSeen walks every commit reachable from any ref, in
// chronological order, and yields each unique blob attributed to the first
// commit that introduced it. This is the path that satisfies
// --git-blob-provenance=first-seen: unlike the native fast path, it always
// records commit metadata.
func (e *GitEnumerator) enumerateAllHistoryFirstSeen(ctx context.Context, callback func(content []byte, blobID types.BlobID, prov types.Provenance) error) error {
	repo, err := git.PlainOpen(e.config.Root)
	if err != nil {
		return fmt.Errorf("failed to open git repository: %w", err)
	}

	commits, err := orderedReachableCommits(repo)
	if err != nil {
		return fmt.Errorf("failed to walk commit history: %w", err)
	}

	seen := make(map[plumbing.Hash]bool)

	for _, commit := range commits {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tree, err := commit.Tree()
		if err != nil {
			return fmt.Errorf("failed to get tree for commit %s: %w", commit.Hash, err)
		}

		commitMeta := &types.CommitMetadata{
			CommitID:           commit.Hash.String(),
			AuthorName:         commit.Author.Name,
			AuthorEmail:        commit.Author.Email,
			AuthorTimestamp:    commit.Author.When,
			CommitterName:      commit.Committer.Name,
			CommitterEmail:     commit.Committer.Email,
			CommitterTimestamp: commit.Committer.When,
			Message:            commit.Message,
		}

		err = tree.Files().ForEach(func(f *object.File) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if seen[f.Hash] {
				return nil
			}
			seen[f.Hash] = true

			if e.config.MaxFileSize > 0 && f.Size > e.config.MaxFileSize {
				return nil
			}

			content, err := f.Contents()
			if err != nil {
				return fmt.Errorf("failed to get contents of %s: %w", f.Name, err)
			}

			if isBinary([]byte(content)) {
				return nil
			}

			blobID := types.ComputeBlobID([]byte(content))

			prov := types.GitProvenance{
				RepoPath: e.config.Root,
				Commit:   commitMeta,
				BlobPath: f.Name,
			}

			return callback([]byte(content), blobID, prov)
		})
		if err != nil {
			return fmt.Errorf("failed to walk tree for commit %s: %w", commit.Hash, err)
		}
	}

	return nil
}

// orderedReachableCommits returns every commit reachable from any ref in the
// repository, deduplicated and sorted oldest-first so that a first-seen scan
// attributes each blob to the earliest commit that introduced it.
func orderedReachableCommits(repo *git.Repository) ([]*object.Commit, error) {
	refs, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("listing refs: %w", err)
	}

	seen := make(map[plumbing.Hash]bool)
	var commits []*object.Commit

	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		commitIter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
		if err != nil {
			// Ref doesn't point at a commit (e.g. an annotated tag of a blob) - skip it.
			return nil
		}
		defer commitIter.Close()

		return commitIter.ForEach(func(c *object.Commit) error {
			if seen[c.Hash] {
				return nil
			}
			seen[c.Hash] = true
			commits = append(commits, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(commits, func(i, j int) bool {
		return commits[i].Committer.When.Before(commits[j].Committer.When)
	})

	return commits, nil
}
