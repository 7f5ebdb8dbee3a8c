package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"learnpi/interpreter-go/pkg/driver"
)

// dirChecksum hashes every file below path in a stable order, ignoring git
// metadata.
func dirChecksum(path string) (string, error) {
	var files []string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	h := sha256.New()
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(path, file)
		if err != nil {
			return "", err
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		h.Write([]byte{0})
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type gitFetcher struct {
	cacheDir string
}

func newGitFetcher(cacheDir string) *gitFetcher {
	if cacheDir == "" {
		return nil
	}
	return &gitFetcher{cacheDir: cacheDir}
}

// Fetch checks the pinned revision of a git dependency out into the cache and
// returns its lock entry together with the checkout directory.
func (g *gitFetcher) Fetch(name string, spec *driver.DependencySpec) (*driver.LockedPackage, string, error) {
	if g == nil {
		return nil, "", errors.New("git fetcher unavailable")
	}
	url := strings.TrimSpace(spec.Git)
	if url == "" {
		return nil, "", fmt.Errorf("dependency %q: git URL required", name)
	}

	version, commit, err := g.ensureCheckout(name, url, spec)
	if err != nil {
		return nil, "", err
	}
	checkoutDir := driver.CachePath(g.cacheDir, name, version)
	checksum, err := dirChecksum(checkoutDir)
	if err != nil {
		return nil, "", err
	}
	return &driver.LockedPackage{
		Name:     sanitizeName(name),
		Version:  version,
		Source:   fmt.Sprintf("git+%s@%s", url, commit),
		Checksum: checksum,
	}, checkoutDir, nil
}

func (g *gitFetcher) ensureCheckout(name, url string, spec *driver.DependencySpec) (string, string, error) {
	revision, descriptor, err := gitRevisionFromSpec(spec)
	if err != nil {
		return "", "", err
	}
	baseDir := filepath.Dir(driver.CachePath(g.cacheDir, name, descriptor))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", "", err
	}

	if spec.Rev != "" {
		if _, err := os.Stat(driver.CachePath(g.cacheDir, name, spec.Rev)); err == nil {
			return spec.Rev, spec.Rev, nil
		}
	}

	tmpDir, err := os.MkdirTemp(baseDir, "git-fetch-*")
	if err != nil {
		return "", "", err
	}
	if err := os.RemoveAll(tmpDir); err != nil {
		return "", "", err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{URL: url})
	if err != nil {
		cleanup()
		return "", "", fmt.Errorf("git clone %s: %w", url, err)
	}
	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		cleanup()
		return "", "", fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	version := gitPinnedVersion(descriptor, hash.String())
	targetDir := driver.CachePath(g.cacheDir, name, version)
	if _, err := os.Stat(targetDir); err == nil {
		cleanup()
		return version, hash.String(), nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		cleanup()
		return "", "", err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		cleanup()
		return "", "", fmt.Errorf("git checkout %s: %w", revision, err)
	}
	if err := os.Rename(tmpDir, targetDir); err != nil {
		cleanup()
		return "", "", err
	}
	return version, hash.String(), nil
}

// gitPinnedVersion names a checkout after the requested ref and the commit it
// resolved to, e.g. "v1.0.0@<sha>".
func gitPinnedVersion(descriptor, commit string) string {
	if descriptor == "" || descriptor == commit {
		return commit
	}
	return descriptor + "@" + commit
}

func gitRevisionFromSpec(spec *driver.DependencySpec) (plumbing.Revision, string, error) {
	switch {
	case spec.Rev != "":
		return plumbing.Revision(spec.Rev), spec.Rev, nil
	case spec.Tag != "":
		return plumbing.Revision("refs/tags/" + spec.Tag), spec.Tag, nil
	case spec.Branch != "":
		return plumbing.Revision("refs/remotes/origin/" + spec.Branch), spec.Branch, nil
	default:
		return "", "", errors.New("git dependencies require rev, tag, or branch")
	}
}
