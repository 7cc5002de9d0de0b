// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gitrepo keeps the document working copy in step with its Git remote.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/pdiddy/knowledge-sync/pkg/types"
)

// ErrSourceUnavailable marks failures to reach or update the document source.
// Callers log it and retry on the next tick instead of exiting.
var ErrSourceUnavailable = errors.New("document source unavailable")

const remoteName = git.DefaultRemoteName

// Syncer mirrors a remote repository into the sync directory.
type Syncer struct {
	cfg types.GitConfig
	dir string
}

// New returns a Syncer for the configured remote and working copy directory.
func New(cfg types.GitConfig, dir string) *Syncer {
	return &Syncer{cfg: cfg, dir: dir}
}

// Enabled reports whether a remote is configured. When false the Git phase is
// skipped and the sync directory contents are used as-is.
func (s *Syncer) Enabled() bool {
	return s.cfg.RepoURL != ""
}

// Ensure clones the remote on first run and updates the working copy
// afterwards. It reports whether the working copy changed and the resulting
// head commit. Failures wrap ErrSourceUnavailable.
func (s *Syncer) Ensure(ctx context.Context) (changed bool, head string, err error) {
	if _, statErr := os.Stat(filepath.Join(s.dir, ".git")); os.IsNotExist(statErr) {
		head, err = s.clone(ctx)
		return err == nil, head, err
	}

	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return false, "", unavailable("opening repository", err)
	}

	before, err := headHash(repo)
	if err != nil {
		return false, "", unavailable("reading HEAD", err)
	}

	if err := s.update(ctx, repo); err != nil {
		return false, "", err
	}

	after, err := headHash(repo)
	if err != nil {
		return false, "", unavailable("reading HEAD", err)
	}
	return before != after, after, nil
}

// Head returns the current commit hash of the working copy.
func (s *Syncer) Head() (string, error) {
	repo, err := git.PlainOpen(s.dir)
	if err != nil {
		return "", fmt.Errorf("opening repository: %w", err)
	}
	return headHash(repo)
}

func (s *Syncer) clone(ctx context.Context) (string, error) {
	opts := &git.CloneOptions{
		URL:          s.cfg.RepoURL,
		Depth:        s.cfg.Depth,
		SingleBranch: s.cfg.Depth > 0,
		Auth:         s.auth(),
		Tags:         git.NoTags,
	}
	if s.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.cfg.Branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, s.dir, false, opts)
	if err != nil {
		return "", unavailable(fmt.Sprintf("cloning %s", Redact(s.cfg.RepoURL)), err)
	}
	return headHash(repo)
}

// update advances an existing working copy. Full clones fast-forward with
// pull; shallow clones and rewritten upstream history go through fetch plus
// hard reset to the remote ref.
func (s *Syncer) update(ctx context.Context, repo *git.Repository) error {
	if s.cfg.Depth > 0 {
		return s.fetchReset(ctx, repo)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return unavailable("opening worktree", err)
	}

	opts := &git.PullOptions{
		RemoteName: remoteName,
		Auth:       s.auth(),
	}
	if s.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.cfg.Branch)
	}

	err = wt.PullContext(ctx, opts)
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return s.fetchReset(ctx, repo)
	default:
		return unavailable(fmt.Sprintf("pulling %s", Redact(s.cfg.RepoURL)), err)
	}
}

// fetchReset forces the working copy to match the remote branch head.
func (s *Syncer) fetchReset(ctx context.Context, repo *git.Repository) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		Depth:      s.cfg.Depth,
		Auth:       s.auth(),
		Force:      true,
		Tags:       git.NoTags,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return unavailable(fmt.Sprintf("fetching %s", Redact(s.cfg.RepoURL)), err)
	}

	branch := s.cfg.Branch
	if branch == "" {
		head, err := repo.Head()
		if err != nil {
			return unavailable("reading HEAD", err)
		}
		branch = head.Name().Short()
	}

	ref, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if err != nil {
		return unavailable(fmt.Sprintf("resolving %s/%s", remoteName, branch), err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return unavailable("opening worktree", err)
	}
	if err := wt.Reset(&git.ResetOptions{Mode: git.HardReset, Commit: ref.Hash()}); err != nil {
		return unavailable("resetting worktree", err)
	}
	return nil
}

func (s *Syncer) auth() transport.AuthMethod {
	if s.cfg.Token == "" {
		return nil
	}
	user := s.cfg.Username
	if user == "" {
		// GitHub and GitLab accept any non-empty username with a token.
		user = "git"
	}
	return &githttp.BasicAuth{Username: user, Password: s.cfg.Token}
}

func headHash(repo *git.Repository) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	return head.Hash().String(), nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrSourceUnavailable, err))
}

// Redact masks credentials embedded in a remote URL so it is safe to log.
// The whole userinfo is replaced; a bare username can itself be a token
// (GitHub PATs ride in the username slot with no password).
func Redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.User("xxxxx")
	return u.String()
}
