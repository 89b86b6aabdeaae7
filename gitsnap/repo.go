// Package gitsnap syncs the note repository with a git working tree: notes
// become Markdown files, and each sync can leave a commit behind so the tree
// carries its own history.
package gitsnap

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/noteport/noteport/pipeline"
)

const FormatName = "gitsnap"

const (
	defaultAuthorName  = "noteport"
	defaultAuthorEmail = "noteport@localhost"
)

// repo wraps a go-git repository opened at a working tree.
type repo struct {
	path string
	git  *git.Repository
}

func openRepo(path string) (*repo, error) {
	r, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("gitsnap: couldn't open git repository at %s: %w", path, err)
	}
	return &repo{path: path, git: r}, nil
}

// checkoutBranch switches the working tree to the named branch, creating it
// from HEAD when it doesn't exist yet.  Empty name means stay put.
func (r *repo) checkoutBranch(name string) error {
	if name == "" {
		return nil
	}

	wt, err := r.git.Worktree()
	if err != nil {
		return fmt.Errorf("gitsnap: couldn't get worktree: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(name)

	err = wt.Checkout(&git.CheckoutOptions{Branch: ref})
	if err == nil {
		return nil
	}

	err = wt.Checkout(&git.CheckoutOptions{Branch: ref, Create: true})
	if err != nil {
		return fmt.Errorf("gitsnap: couldn't check out branch %s: %w", name, err)
	}
	return nil
}

// dirtyPaths lists files with uncommitted local changes.  These are the
// conflicts a sync refuses to clobber.
func (r *repo) dirtyPaths() ([]string, error) {
	wt, err := r.git.Worktree()
	if err != nil {
		return nil, fmt.Errorf("gitsnap: couldn't get worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("gitsnap: couldn't get worktree status: %w", err)
	}

	dirty := []string{}
	for path, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		if st.Worktree == git.Untracked {
			continue
		}
		dirty = append(dirty, path)
	}

	sort.Strings(dirty)
	return dirty, nil
}

// commitAll stages everything and commits.  Returns the empty hash without
// error when there is nothing to commit.
func (r *repo) commitAll(message string, gitOpts pipeline.GitOptions) (string, error) {
	wt, err := r.git.Worktree()
	if err != nil {
		return "", fmt.Errorf("gitsnap: couldn't get worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", fmt.Errorf("gitsnap: couldn't stage changes: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return "", fmt.Errorf("gitsnap: couldn't get worktree status: %w", err)
	}
	if status.IsClean() {
		return "", nil
	}

	name := gitOpts.AuthorName
	if name == "" {
		name = defaultAuthorName
	}
	email := gitOpts.AuthorEmail
	if email == "" {
		email = defaultAuthorEmail
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  name,
			Email: email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("gitsnap: couldn't commit: %w", err)
	}

	return hash.String(), nil
}
