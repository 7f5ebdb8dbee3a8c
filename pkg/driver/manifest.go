package driver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file name of a LearnPi project manifest.
const ManifestName = "package.yml"

// Manifest represents the parsed contents of package.yml.
type Manifest struct {
	Path         string
	Name         string
	Version      string
	Authors      []string
	Targets      map[string]*TargetSpec
	TargetOrder  []string
	Dependencies map[string]*DependencySpec
	Board        BoardConfig

	collisions []string
}

// Root returns the directory holding the manifest.
func (m *Manifest) Root() string {
	if m == nil || m.Path == "" {
		return ""
	}
	return filepath.Dir(m.Path)
}

// TargetSpec describes a runnable or preloadable program in the manifest.
type TargetSpec struct {
	Name         string
	OriginalName string
	Type         TargetType
	Main         string
}

// MainPath resolves the target's AST document relative to the manifest.
func (t *TargetSpec) MainPath(m *Manifest) string {
	if filepath.IsAbs(t.Main) {
		return filepath.Clean(t.Main)
	}
	return filepath.Join(m.Root(), filepath.FromSlash(t.Main))
}

// TargetType enumerates supported target kinds.
type TargetType string

const (
	TargetTypeExecutable TargetType = "executable"
	TargetTypeLibrary    TargetType = "library"
)

// IsValid reports whether the target type is recognised.
func (t TargetType) IsValid() bool {
	return t == TargetTypeExecutable || t == TargetTypeLibrary
}

// DependencySpec describes where a dependency's sources come from. Exactly one
// of Git or Path is set; git sources pin one of Rev, Tag or Branch.
type DependencySpec struct {
	Git    string
	Rev    string
	Tag    string
	Branch string
	Path   string
}

// IsGit reports whether the dependency is fetched from a git remote.
func (d *DependencySpec) IsGit() bool {
	return d != nil && d.Git != ""
}

// BoardConfig carries the runtime settings for the board a project targets.
type BoardConfig struct {
	Backend    string
	MaxSymbols int
	DelayScale float64
}

// BackendSimulated is the only board backend shipped with the interpreter.
const BackendSimulated = "simulated"

// DefaultBoard returns the settings used when a manifest has no board section.
func DefaultBoard() BoardConfig {
	return BoardConfig{Backend: BackendSimulated, DelayScale: 1}
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// ErrNoExecutableTarget is returned when a manifest declares nothing to run.
var ErrNoExecutableTarget = errors.New("manifest: no executable targets defined")

// LoadManifest parses package.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, errors.New("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest: resolve %s", path)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest: open %s", absPath)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.Errorf("manifest: %s is empty", absPath)
		}
		return nil, errors.Wrapf(err, "manifest: parse %s", absPath)
	}

	manifest := raw.toManifest(absPath)
	if err := manifest.validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// FindManifest walks upward from start looking for package.yml. It returns an
// empty path without error when none exists.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", errors.Wrapf(err, "manifest: resolve %s", start)
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", errors.Wrapf(err, "manifest: stat %s", candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (m *Manifest) validate() error {
	var errs ValidationError
	if m.Name == "" {
		errs.Issues = append(errs.Issues, "name must be provided")
	}
	for i, author := range m.Authors {
		if author == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("authors[%d] must be a non-empty string", i))
		}
	}

	errs.Issues = append(errs.Issues, m.collisions...)
	for _, key := range m.TargetOrder {
		target := m.Targets[key]
		if target.Type == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("target %q missing type", target.OriginalName))
		} else if !target.Type.IsValid() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("target %q has unsupported type %q", target.OriginalName, target.Type))
		}
		if target.Main == "" {
			errs.Issues = append(errs.Issues, fmt.Sprintf("target %q requires a main entrypoint", target.OriginalName))
		} else if !isProgramDocument(target.Main) {
			errs.Issues = append(errs.Issues, fmt.Sprintf("target %q main %q must be a .json, .yml or .yaml document", target.OriginalName, target.Main))
		}
	}

	for _, name := range sortedKeys(m.Dependencies) {
		for _, issue := range m.Dependencies[name].validate() {
			errs.Issues = append(errs.Issues, fmt.Sprintf("dependencies.%s: %s", name, issue))
		}
	}

	switch m.Board.Backend {
	case BackendSimulated:
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("board.backend %q is not supported", m.Board.Backend))
	}
	if m.Board.MaxSymbols < 0 {
		errs.Issues = append(errs.Issues, "board.max_symbols must not be negative")
	}
	if m.Board.DelayScale < 0 {
		errs.Issues = append(errs.Issues, "board.delay_scale must not be negative")
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func isProgramDocument(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yml", ".yaml":
		return true
	default:
		return false
	}
}

func (d *DependencySpec) validate() []string {
	var errs []string
	switch {
	case d.Git == "" && d.Path == "":
		errs = append(errs, "must specify git or path")
	case d.Git != "" && d.Path != "":
		errs = append(errs, "path overrides cannot specify a git source")
	}
	pins := 0
	for _, pin := range []string{d.Rev, d.Tag, d.Branch} {
		if pin != "" {
			pins++
		}
	}
	if d.Git != "" && d.Path == "" && pins == 0 {
		errs = append(errs, "git dependencies require rev, tag, or branch")
	}
	if pins > 1 {
		errs = append(errs, "only one of rev, tag, or branch may be given")
	}
	if d.Path != "" && pins > 0 {
		errs = append(errs, "rev, tag and branch apply only to git dependencies")
	}
	return errs
}

// DefaultExecutableTarget returns the first executable target in manifest order.
func (m *Manifest) DefaultExecutableTarget() (*TargetSpec, error) {
	if m == nil {
		return nil, ErrNoExecutableTarget
	}
	for _, key := range m.TargetOrder {
		if target := m.Targets[key]; target.Type == TargetTypeExecutable {
			return target, nil
		}
	}
	return nil, ErrNoExecutableTarget
}

// LibraryTargets returns the library targets in manifest order.
func (m *Manifest) LibraryTargets() []*TargetSpec {
	var out []*TargetSpec
	for _, key := range m.TargetOrder {
		if target := m.Targets[key]; target.Type == TargetTypeLibrary {
			out = append(out, target)
		}
	}
	return out
}

// FindTarget looks up a target by sanitized or original name.
func (m *Manifest) FindTarget(name string) (*TargetSpec, bool) {
	if m == nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	if target, ok := m.Targets[sanitizeSegment(name)]; ok {
		return target, true
	}
	for _, key := range m.TargetOrder {
		if target := m.Targets[key]; strings.EqualFold(target.OriginalName, name) {
			return target, true
		}
	}
	return nil, false
}

type manifestFile struct {
	Name         string        `yaml:"name"`
	Version      string        `yaml:"version"`
	Authors      stringList    `yaml:"authors"`
	Targets      targetMap     `yaml:"targets"`
	Dependencies dependencyMap `yaml:"dependencies"`
	Board        *boardYAML    `yaml:"board"`
}

type targetYAML struct {
	Type TargetType `yaml:"type"`
	Main string     `yaml:"main"`
}

type boardYAML struct {
	Backend    string   `yaml:"backend"`
	MaxSymbols int      `yaml:"max_symbols"`
	DelayScale *float64 `yaml:"delay_scale"`
}

type targetMapEntry struct {
	name string
	spec targetYAML
}

// targetMap keeps targets in document order so the first executable wins.
type targetMap []targetMapEntry

func (tm *targetMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*tm = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return errors.New("manifest: targets must be a mapping")
	}
	items := make(targetMap, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var key string
		if err := value.Content[i].Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("manifest: targets must not use empty keys")
		}
		var entry targetYAML
		if err := value.Content[i+1].Decode(&entry); err != nil {
			return errors.Wrapf(err, "manifest: target %q", key)
		}
		items = append(items, targetMapEntry{name: key, spec: entry})
	}
	*tm = items
	return nil
}

type dependencyMap map[string]*DependencySpec

func (dm *dependencyMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*dm = dependencyMap{}
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return errors.New("manifest: dependencies must be a mapping")
	}
	result := make(dependencyMap, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var key string
		if err := value.Content[i].Decode(&key); err != nil {
			return err
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("manifest: dependency names must be non-empty")
		}
		node := value.Content[i+1]
		if node.Kind == yaml.AliasNode {
			node = node.Alias
		}
		if node.Kind != yaml.MappingNode {
			return errors.Errorf("manifest: dependency %q: expected mapping, found %s", key, node.ShortTag())
		}
		var raw struct {
			Git    string `yaml:"git"`
			Rev    string `yaml:"rev"`
			Tag    string `yaml:"tag"`
			Branch string `yaml:"branch"`
			Path   string `yaml:"path"`
		}
		if err := node.Decode(&raw); err != nil {
			return errors.Wrapf(err, "manifest: dependency %q", key)
		}
		result[key] = &DependencySpec{
			Git:    strings.TrimSpace(raw.Git),
			Rev:    strings.TrimSpace(raw.Rev),
			Tag:    strings.TrimSpace(raw.Tag),
			Branch: strings.TrimSpace(raw.Branch),
			Path:   strings.TrimSpace(raw.Path),
		}
	}
	*dm = result
	return nil
}

// stringList accepts either a single scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" || strings.TrimSpace(value.Value) == "" {
			*l = nil
			return nil
		}
		*l = stringList{strings.TrimSpace(value.Value)}
		return nil
	case yaml.SequenceNode:
		items := make([]string, 0, len(value.Content))
		for _, node := range value.Content {
			var str string
			if err := node.Decode(&str); err != nil {
				return err
			}
			items = append(items, strings.TrimSpace(str))
		}
		*l = items
		return nil
	case yaml.AliasNode:
		return l.UnmarshalYAML(value.Alias)
	default:
		return errors.Errorf("manifest: expected string or sequence for list but found %s", value.ShortTag())
	}
}

func (mf manifestFile) toManifest(path string) *Manifest {
	result := &Manifest{
		Path:         path,
		Name:         sanitizeSegment(mf.Name),
		Version:      strings.TrimSpace(mf.Version),
		Authors:      append([]string(nil), mf.Authors...),
		Targets:      make(map[string]*TargetSpec, len(mf.Targets)),
		TargetOrder:  make([]string, 0, len(mf.Targets)),
		Dependencies: make(map[string]*DependencySpec, len(mf.Dependencies)),
		Board:        DefaultBoard(),
	}
	for name, dep := range mf.Dependencies {
		result.Dependencies[sanitizeSegment(name)] = dep
	}
	for _, item := range mf.Targets {
		key := sanitizeSegment(item.name)
		if other, exists := result.Targets[key]; exists {
			result.collisions = append(result.collisions, fmt.Sprintf("targets %q and %q collide after sanitization", other.OriginalName, item.name))
			continue
		}
		result.Targets[key] = &TargetSpec{
			Name:         key,
			OriginalName: item.name,
			Type:         TargetType(strings.TrimSpace(string(item.spec.Type))),
			Main:         strings.TrimSpace(item.spec.Main),
		}
		result.TargetOrder = append(result.TargetOrder, key)
	}
	if mf.Board != nil {
		if backend := strings.TrimSpace(mf.Board.Backend); backend != "" {
			result.Board.Backend = strings.ToLower(backend)
		}
		result.Board.MaxSymbols = mf.Board.MaxSymbols
		if mf.Board.DelayScale != nil {
			result.Board.DelayScale = *mf.Board.DelayScale
		}
	}
	return result
}
