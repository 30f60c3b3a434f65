// Package gitfixtures pins a directory of dispatch fixtures to a specific
// git revision and materializes it into a scratch directory, the way the
// teacher's dependency installer resolves a `git:`/`rev:` manifest
// dependency into a cached checkout (pkg/driver's newDependencyInstaller).
// Fixture corpora evolve independently of this module's release cadence;
// pinning by revision keeps a test run reproducible even as the corpus grows.
package gitfixtures

import (
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Pin describes one fixture corpus: a git remote, a revision (a full commit
// hash, a short hash, or a branch/tag name), and the subdirectory within the
// checkout that holds the *.dispatch.yaml files.
type Pin struct {
	URL    string
	Rev    string
	Subdir string
}

// Checkout clones (or, if destDir already holds a clone of URL, reuses) the
// repository and hard-resets the worktree to Rev, returning the absolute
// path to the fixture subdirectory. destDir is caller-owned — pass
// t.TempDir() in tests — and is created if it does not exist.
func Checkout(pin Pin, destDir string) (string, error) {
	if pin.URL == "" {
		return "", fmt.Errorf("gitfixtures: Pin.URL must be set")
	}
	if pin.Rev == "" {
		return "", fmt.Errorf("gitfixtures: Pin.Rev must be set")
	}

	repo, err := openOrClone(pin.URL, destDir)
	if err != nil {
		return "", fmt.Errorf("gitfixtures: clone %s: %w", pin.URL, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("gitfixtures: worktree: %w", err)
	}

	hash, err := resolveRevision(repo, pin.Rev)
	if err != nil {
		return "", fmt.Errorf("gitfixtures: resolve revision %q: %w", pin.Rev, err)
	}

	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		return "", fmt.Errorf("gitfixtures: checkout %s: %w", hash, err)
	}

	dir := destDir
	if pin.Subdir != "" {
		dir = destDir + string(os.PathSeparator) + pin.Subdir
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("gitfixtures: fixture subdir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("gitfixtures: %s is not a directory", dir)
	}
	return dir, nil
}

func openOrClone(url, destDir string) (*git.Repository, error) {
	if repo, err := git.PlainOpen(destDir); err == nil {
		if err := fetchAll(repo); err != nil {
			return nil, err
		}
		return repo, nil
	}
	return git.PlainClone(destDir, false, &git.CloneOptions{URL: url})
}

func fetchAll(repo *git.Repository) error {
	err := repo.Fetch(&git.FetchOptions{Force: true})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return err
	}
	return nil
}

// resolveRevision accepts a full hash, short hash, branch, or tag and
// returns the commit it points at.
func resolveRevision(repo *git.Repository, rev string) (*plumbing.Hash, error) {
	return repo.ResolveRevision(plumbing.Revision(rev))
}
