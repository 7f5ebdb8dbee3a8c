package driver

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LockfileName is the file name written next to package.yml.
const LockfileName = "package.lock"

// Lockfile models the package.lock contents.
type Lockfile struct {
	Path      string           `yaml:"-"`
	Root      string           `yaml:"root"`
	Generated string           `yaml:"generated"`
	Tool      string           `yaml:"tool"`
	Packages  []*LockedPackage `yaml:"packages"`
}

// LockedPackage records how one dependency was resolved.
type LockedPackage struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Source   string `yaml:"source"`
	Checksum string `yaml:"checksum"`
}

// NewLockfile constructs an empty lockfile for the named root package.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{
		Root:      sanitizeSegment(root),
		Generated: time.Now().UTC().Format(time.RFC3339),
		Tool:      strings.TrimSpace(tool),
		Packages:  []*LockedPackage{},
	}
}

// LockfilePath returns the lockfile location for a manifest.
func LockfilePath(manifest *Manifest) string {
	return filepath.Join(manifest.Root(), LockfileName)
}

// LoadLockfile parses package.lock from disk. A missing file is reported with
// an error satisfying errors.Is(err, os.ErrNotExist).
func LoadLockfile(path string) (*Lockfile, error) {
	if path == "" {
		return nil, errors.New("lockfile: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "lockfile: resolve %s", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "lockfile: read %s", abs)
	}

	var lock Lockfile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&lock); err != nil {
		return nil, errors.Wrapf(err, "lockfile: parse %s", abs)
	}
	lock.Path = abs
	lock.normalize()
	return &lock, nil
}

// WriteLockfile serialises the lockfile to path, or to lock.Path when path is
// empty, refreshing the generated timestamp.
func WriteLockfile(lock *Lockfile, path string) error {
	if lock == nil {
		return errors.New("lockfile: nil lockfile")
	}
	if path == "" {
		path = lock.Path
	}
	if path == "" {
		return errors.New("lockfile: missing path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "lockfile: resolve %s", path)
	}
	lock.Path = abs
	lock.Generated = time.Now().UTC().Format(time.RFC3339)
	lock.normalize()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(lock); err != nil {
		return errors.Wrapf(err, "lockfile: marshal %s", abs)
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "lockfile: encoder close")
	}
	return errors.Wrapf(os.WriteFile(abs, buf.Bytes(), 0o644), "lockfile: write %s", abs)
}

// Find returns the locked entry for a dependency name.
func (l *Lockfile) Find(name string) (*LockedPackage, bool) {
	if l == nil {
		return nil, false
	}
	name = sanitizeSegment(name)
	for _, pkg := range l.Packages {
		if pkg != nil && pkg.Name == name {
			return pkg, true
		}
	}
	return nil, false
}

// Equal reports whether two locked entries resolve identically.
func (p *LockedPackage) Equal(other *LockedPackage) bool {
	if p == nil || other == nil {
		return p == other
	}
	return *p == *other
}

func (l *Lockfile) normalize() {
	l.Root = sanitizeSegment(l.Root)
	l.Tool = strings.TrimSpace(l.Tool)
	kept := l.Packages[:0]
	for _, pkg := range l.Packages {
		if pkg == nil {
			continue
		}
		pkg.Name = sanitizeSegment(pkg.Name)
		pkg.Version = strings.TrimSpace(pkg.Version)
		pkg.Source = strings.TrimSpace(pkg.Source)
		pkg.Checksum = strings.TrimSpace(pkg.Checksum)
		kept = append(kept, pkg)
	}
	l.Packages = kept
	sort.SliceStable(l.Packages, func(i, j int) bool {
		return l.Packages[i].Name < l.Packages[j].Name
	})
}
