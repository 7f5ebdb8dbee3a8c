package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"learnpi/interpreter-go/pkg/driver"
)

func (c *cli) runDepsInstall() int {
	return c.resolveDependencies(nil, false)
}

func (c *cli) runDepsUpdate(names []string) int {
	return c.resolveDependencies(names, true)
}

// resolveDependencies installs the manifest's dependencies into the cache and
// rewrites package.lock when anything changed. With update set, the named
// lock entries (all of them when names is empty) are dropped first so they
// resolve afresh.
func (c *cli) resolveDependencies(names []string, update bool) int {
	manifest, err := manifestFromDir(".")
	if err != nil {
		fmt.Fprintf(c.stderr, "failed to read manifest: %v\n", err)
		return 1
	}
	if manifest == nil {
		fmt.Fprintf(c.stderr, "unable to locate %s\n", driver.ManifestName)
		return 1
	}
	cacheDir, err := driver.ResolveHome()
	if err != nil {
		fmt.Fprintf(c.stderr, "failed to resolve %s: %v\n", driver.HomeEnv, err)
		return 1
	}

	updateSet := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := sanitizeName(name)
		if _, ok := manifest.Dependencies[key]; !ok {
			fmt.Fprintf(c.stderr, "dependency %q not declared in manifest\n", name)
			return 1
		}
		updateSet[key] = struct{}{}
	}

	fmt.Fprintf(c.stdout, "Manifest: %s\n", manifest.Path)
	fmt.Fprintf(c.stdout, "Dependencies: %d\n", len(manifest.Dependencies))
	fmt.Fprintf(c.stdout, "Cache directory: %s\n", cacheDir)

	lockPath := driver.LockfilePath(manifest)
	lock, err := driver.LoadLockfile(lockPath)
	lockCreated := false
	switch {
	case err == nil:
		if lock.Root != manifest.Name {
			fmt.Fprintf(c.stderr, "lockfile root %q does not match manifest name %q\n", lock.Root, manifest.Name)
			return 1
		}
	case errors.Is(err, os.ErrNotExist):
		lock = driver.NewLockfile(manifest.Name, cliToolVersion)
		lockCreated = true
	default:
		fmt.Fprintf(c.stderr, "failed to read lockfile: %v\n", err)
		return 1
	}
	lock.Tool = cliToolVersion

	if update {
		kept := lock.Packages[:0]
		for _, pkg := range lock.Packages {
			if _, ok := updateSet[pkg.Name]; len(updateSet) > 0 && !ok {
				kept = append(kept, pkg)
			}
		}
		lock.Packages = kept
	}

	installer := newDependencyInstaller(manifest, cacheDir, c.log)
	changed, logs, err := installer.Install(lock)
	for _, line := range logs {
		fmt.Fprintln(c.stdout, line)
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "failed to resolve dependencies: %v\n", err)
		return 1
	}

	if changed || lockCreated {
		action := "Updated"
		if lockCreated {
			action = "Created"
		}
		if err := driver.WriteLockfile(lock, lockPath); err != nil {
			fmt.Fprintf(c.stderr, "failed to write lockfile: %v\n", err)
			return 1
		}
		fmt.Fprintf(c.stdout, "%s %s: %s\n", action, driver.LockfileName, lock.Path)
	} else {
		fmt.Fprintf(c.stdout, "%s already up to date: %s\n", driver.LockfileName, lockPath)
	}
	return 0
}

type dependencyInstaller struct {
	manifest *driver.Manifest
	cacheDir string
	git      *gitFetcher
	log      *zap.Logger
	logs     []string
}

func newDependencyInstaller(manifest *driver.Manifest, cacheDir string, logger *zap.Logger) *dependencyInstaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dependencyInstaller{
		manifest: manifest,
		cacheDir: cacheDir,
		git:      newGitFetcher(cacheDir),
		log:      logger.Named("deps"),
	}
}

// Install resolves every manifest dependency, reusing entries already in the
// lock where their sources are still present, and replaces lock.Packages with
// the result. It reports whether the locked set changed.
func (d *dependencyInstaller) Install(lock *driver.Lockfile) (bool, []string, error) {
	d.logs = nil
	names := make([]string, 0, len(d.manifest.Dependencies))
	for name := range d.manifest.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	desired := make([]*driver.LockedPackage, 0, len(names))
	for _, name := range names {
		existing, _ := lock.Find(name)
		pkg, err := d.resolveDependency(name, d.manifest.Dependencies[name], existing)
		if err != nil {
			return false, d.logs, fmt.Errorf("dependency %s: %w", name, err)
		}
		desired = append(desired, pkg)
	}

	changed := len(desired) != len(lock.Packages)
	for _, pkg := range desired {
		if current, ok := lock.Find(pkg.Name); !ok || !current.Equal(pkg) {
			changed = true
		}
	}
	lock.Packages = desired
	return changed, d.logs, nil
}

func (d *dependencyInstaller) resolveDependency(name string, spec *driver.DependencySpec, existing *driver.LockedPackage) (*driver.LockedPackage, error) {
	if spec.IsGit() {
		return d.resolveGitDependency(name, spec, existing)
	}
	return d.resolvePathDependency(name, spec)
}

func (d *dependencyInstaller) resolvePathDependency(name string, spec *driver.DependencySpec) (*driver.LockedPackage, error) {
	source := "path:" + filepath.ToSlash(spec.Path)
	root := driver.PackageRoot(d.manifest.Root(), d.cacheDir, &driver.LockedPackage{Source: source})
	depManifest, err := driver.LoadManifest(filepath.Join(root, driver.ManifestName))
	if err != nil {
		return nil, err
	}
	checksum, err := dirChecksum(root)
	if err != nil {
		return nil, fmt.Errorf("checksum %s: %w", root, err)
	}
	version := depManifest.Version
	if version == "" {
		version = "0.0.0"
	}
	d.logs = append(d.logs, fmt.Sprintf("Resolved %s from %s", name, d.displayPath(root)))
	d.log.Debug("resolved path dependency", zap.String("name", name), zap.String("root", root))
	return &driver.LockedPackage{
		Name:     sanitizeName(name),
		Version:  version,
		Source:   source,
		Checksum: checksum,
	}, nil
}

func (d *dependencyInstaller) resolveGitDependency(name string, spec *driver.DependencySpec, existing *driver.LockedPackage) (*driver.LockedPackage, error) {
	if lockedMatchesSpec(existing, spec) {
		cached := driver.CachePath(d.cacheDir, name, existing.Version)
		if _, err := os.Stat(filepath.Join(cached, driver.ManifestName)); err == nil {
			d.logs = append(d.logs, fmt.Sprintf("Using locked %s %s", name, existing.Version))
			return existing, nil
		}
	}
	pkg, checkout, err := d.git.Fetch(name, spec)
	if err != nil {
		return nil, err
	}
	if _, err := driver.LoadManifest(filepath.Join(checkout, driver.ManifestName)); err != nil {
		return nil, err
	}
	d.logs = append(d.logs, fmt.Sprintf("Fetched %s %s from %s", name, pkg.Version, spec.Git))
	d.log.Debug("fetched git dependency", zap.String("name", name), zap.String("source", pkg.Source))
	return pkg, nil
}

// lockedMatchesSpec reports whether a lock entry was produced from the same
// remote and ref the manifest asks for now.
func lockedMatchesSpec(existing *driver.LockedPackage, spec *driver.DependencySpec) bool {
	if existing == nil || !strings.HasPrefix(existing.Source, "git+"+spec.Git+"@") {
		return false
	}
	_, descriptor, err := gitRevisionFromSpec(spec)
	if err != nil {
		return false
	}
	return existing.Version == descriptor || strings.HasPrefix(existing.Version, descriptor+"@")
}

func (d *dependencyInstaller) displayPath(path string) string {
	if rel, err := filepath.Rel(d.manifest.Root(), path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func sanitizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "-", "_")
}
