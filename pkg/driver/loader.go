package driver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"learnpi/interpreter-go/pkg/ast"
)

// Library is a library target loaded for preloading before the entry runs.
type Library struct {
	Package string
	Target  string
	Path    string
	AST     *ast.Program
}

// Program is an entry AST plus the libraries it depends on, in preload order.
type Program struct {
	Manifest  *Manifest
	EntryPath string
	Entry     *ast.Program
	Libraries []*Library
}

// Modules returns the library ASTs in preload order.
func (p *Program) Modules() []*ast.Program {
	out := make([]*ast.Program, 0, len(p.Libraries))
	for _, lib := range p.Libraries {
		out = append(out, lib.AST)
	}
	return out
}

// Loader resolves programs and their locked dependencies from disk.
type Loader struct {
	cacheDir string
	log      *zap.SugaredLogger
}

// NewLoader returns a loader reading git dependencies from cacheDir.
func NewLoader(cacheDir string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cacheDir: cacheDir, log: logger.Named("loader").Sugar()}
}

// LoadFile loads a single AST document. When the file sits inside a project,
// that project's libraries and locked dependencies are loaded too.
func (l *Loader) LoadFile(path string) (*Program, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: resolve %s", path)
	}
	entry, err := ast.LoadProgram(abs)
	if err != nil {
		return nil, err
	}
	program := &Program{EntryPath: abs, Entry: entry}

	manifestPath, err := FindManifest(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	if manifestPath == "" {
		return program, nil
	}
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	program.Manifest = manifest
	program.Libraries, err = l.Libraries(manifest, abs)
	if err != nil {
		return nil, err
	}
	return program, nil
}

// LoadTarget loads a manifest target as the entry program.
func (l *Loader) LoadTarget(manifest *Manifest, target *TargetSpec) (*Program, error) {
	entryPath := target.MainPath(manifest)
	entry, err := ast.LoadProgram(entryPath)
	if err != nil {
		return nil, errors.Wrapf(err, "loader: target %s", target.OriginalName)
	}
	libs, err := l.Libraries(manifest, entryPath)
	if err != nil {
		return nil, err
	}
	return &Program{Manifest: manifest, EntryPath: entryPath, Entry: entry, Libraries: libs}, nil
}

// Libraries loads every library reachable from the manifest: the library
// targets of each locked dependency (by dependency name), then the project's
// own library targets. The file at exclude is skipped so an entry that is also
// a library is not evaluated twice.
func (l *Loader) Libraries(manifest *Manifest, exclude string) ([]*Library, error) {
	var libs []*Library
	if len(manifest.Dependencies) > 0 {
		lock, err := LoadLockfile(LockfilePath(manifest))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, errors.Errorf("loader: %s has dependencies but no %s; run `learnpi deps install`", manifest.Name, LockfileName)
			}
			return nil, err
		}
		for _, name := range sortedKeys(manifest.Dependencies) {
			pkg, ok := lock.Find(name)
			if !ok {
				return nil, errors.Errorf("loader: dependency %s is not locked; run `learnpi deps install`", name)
			}
			root := PackageRoot(manifest.Root(), l.cacheDir, pkg)
			depManifest, err := LoadManifest(filepath.Join(root, ManifestName))
			if err != nil {
				return nil, errors.Wrapf(err, "loader: dependency %s", name)
			}
			loaded, err := l.loadLibraries(depManifest, "")
			if err != nil {
				return nil, errors.Wrapf(err, "loader: dependency %s", name)
			}
			libs = append(libs, loaded...)
		}
	}
	own, err := l.loadLibraries(manifest, exclude)
	if err != nil {
		return nil, err
	}
	return append(libs, own...), nil
}

func (l *Loader) loadLibraries(manifest *Manifest, exclude string) ([]*Library, error) {
	var libs []*Library
	for _, target := range manifest.LibraryTargets() {
		path := target.MainPath(manifest)
		if exclude != "" && filepath.Clean(path) == filepath.Clean(exclude) {
			continue
		}
		program, err := ast.LoadProgram(path)
		if err != nil {
			return nil, errors.Wrapf(err, "library %s", target.OriginalName)
		}
		l.log.Debugw("loaded library", "package", manifest.Name, "target", target.Name, "path", path)
		libs = append(libs, &Library{Package: manifest.Name, Target: target.Name, Path: path, AST: program})
	}
	return libs, nil
}

// PackageRoot locates a locked dependency on disk. Path sources resolve
// against the manifest root; fetched sources live in the cache.
func PackageRoot(manifestRoot, cacheDir string, pkg *LockedPackage) string {
	if spec, ok := strings.CutPrefix(pkg.Source, "path:"); ok {
		spec = strings.TrimSpace(spec)
		if filepath.IsAbs(spec) {
			return filepath.Clean(spec)
		}
		return filepath.Join(manifestRoot, filepath.FromSlash(spec))
	}
	return CachePath(cacheDir, pkg.Name, pkg.Version)
}
