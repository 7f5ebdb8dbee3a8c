package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap/zapcore"

	"learnpi/interpreter-go/pkg/driver"
)

const doubleLibrary = `{"type": "Program", "body": [
  {"type": "FunctionDefinition", "line": 1, "name": "double", "params": ["n"],
   "body": {"type": "BinaryExpression", "operator": "*",
            "left": {"type": "Identifier", "name": "n"},
            "right": {"type": "IntegerLiteral", "value": 2}}}
]}`

const callDouble = `{"type": "Program", "body": [
  {"type": "BuiltinCall", "line": 1, "name": "delay", "args": [{"type": "IntegerLiteral", "value": 60000}]},
  {"type": "BuiltinCall", "line": 2, "name": "print",
   "args": [{"type": "FunctionCall", "name": "double", "args": [{"type": "IntegerLiteral", "value": 21}]}]}
]}`

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimLeft(contents, "\n")), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// initGitRepo commits everything under dir and returns the repository and the
// commit hash.
func initGitRepo(t *testing.T, dir string) (*git.Repository, string) {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	return repo, commitAll(t, repo, dir, "init")
}

func commitAll(t *testing.T, repo *git.Repository, dir, message string) string {
	t.Helper()
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		_, err = worktree.Add(filepath.ToSlash(rel))
		return err
	}); err != nil {
		t.Fatalf("stage files: %v", err)
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "LearnPi CLI", Email: "learnpi@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

func TestRunProgramFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(driver.HomeEnv, filepath.Join(dir, "home"))
	prog := filepath.Join(dir, "hello.json")
	writeFile(t, prog, `{"type": "Program", "body": [
  {"type": "DeviceDeclaration", "line": 1, "name": "led", "declared_type": "LED", "args": [{"type": "IntegerLiteral", "value": 17}]},
  {"type": "BuiltinCall", "line": 2, "name": "led_on", "args": [{"type": "Identifier", "name": "led"}]},
  {"type": "BuiltinCall", "line": 3, "name": "print", "args": [{"type": "StringLiteral", "value": "hello"}]}
]}`)

	code, stdout, stderr := runCLI(t, "run", prog)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr)
	}
	if stdout != "hello\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestRunReportsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(driver.HomeEnv, filepath.Join(dir, "home"))
	prog := filepath.Join(dir, "broken.yml")
	writeFile(t, prog, `
type: Program
body:
  - {type: DeclarationAssign, line: 1, name: x, declared_type: Integer, value: {type: IntegerLiteral, value: 4}}
  - type: Assignment
    line: 2
    name: x
    value: {type: BinaryExpression, operator: /, left: {type: Identifier, name: x}, right: {type: IntegerLiteral, value: 0}}
  - {type: BuiltinCall, line: 3, name: print, args: [{type: Identifier, name: x}]}
`)

	code, stdout, stderr := runCLI(t, "--no-color", prog)
	if code != 1 {
		t.Fatalf("expected exit 1 after a diagnostic, got %d", code)
	}
	if stdout != "4\n" {
		t.Fatalf("program did not continue past the failed statement: %q", stdout)
	}
	if !strings.Contains(stderr, "line 2: error: DivisionByZeroError") {
		t.Fatalf("diagnostic missing from stderr: %q", stderr)
	}
	if strings.Contains(stderr, colorRed) {
		t.Fatalf("--no-color output contains escape codes: %q", stderr)
	}
}

func TestRunFatalErrorStops(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(driver.HomeEnv, filepath.Join(dir, "home"))
	prog := filepath.Join(dir, "spin.json")
	writeFile(t, prog, `{"type": "Program", "body": [
  {"type": "FunctionDefinition", "line": 1, "name": "spin", "params": [],
   "body": {"type": "FunctionCall", "line": 2, "name": "spin", "args": []}},
  {"type": "FunctionCall", "line": 3, "name": "spin", "args": []},
  {"type": "BuiltinCall", "line": 4, "name": "print", "args": [{"type": "StringLiteral", "value": "after"}]}
]}`)

	code, stdout, stderr := runCLI(t, "--quiet", prog)
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if stdout != "" {
		t.Fatalf("statements ran after a fatal error: %q", stdout)
	}
	if !strings.Contains(stderr, "line 2: fatal error: InternalError") {
		t.Fatalf("fatal error missing from stderr: %q", stderr)
	}
}

func TestRunManifestTargetWithPathDependency(t *testing.T) {
	root := t.TempDir()
	t.Setenv(driver.HomeEnv, filepath.Join(root, "home"))

	writeFile(t, filepath.Join(root, "shared", driver.ManifestName), `
name: shared
version: 1.2.0
targets:
  math:
    type: library
    main: math.json
`)
	writeFile(t, filepath.Join(root, "shared", "math.json"), doubleLibrary)

	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, driver.ManifestName), `
name: app
targets:
  main:
    type: executable
    main: src/main.json
dependencies:
  shared:
    path: ../shared
board:
  delay_scale: 0
`)
	writeFile(t, filepath.Join(app, "src", "main.json"), callDouble)
	chdir(t, app)

	code, _, stderr := runCLI(t, "run")
	if code != 1 || !strings.Contains(stderr, "deps install") {
		t.Fatalf("expected missing lockfile hint, got %d: %s", code, stderr)
	}

	code, stdout, stderr := runCLI(t, "deps", "install")
	if code != 0 {
		t.Fatalf("deps install failed: %s", stderr)
	}
	if !strings.Contains(stdout, "Created package.lock") {
		t.Fatalf("unexpected install output: %s", stdout)
	}
	lock, err := driver.LoadLockfile(filepath.Join(app, driver.LockfileName))
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	pkg, ok := lock.Find("shared")
	if !ok || pkg.Version != "1.2.0" || pkg.Source != "path:../shared" || pkg.Checksum == "" {
		t.Fatalf("unexpected lock entry %#v", pkg)
	}

	code, stdout, _ = runCLI(t, "deps", "install")
	if code != 0 || !strings.Contains(stdout, "package.lock already up to date") {
		t.Fatalf("second install should be a no-op: %s", stdout)
	}

	start := time.Now()
	code, stdout, stderr = runCLI(t, "run")
	if code != 0 {
		t.Fatalf("run failed: %s", stderr)
	}
	if stdout != "42\n" {
		t.Fatalf("stdout = %q", stdout)
	}
	if time.Since(start) > 30*time.Second {
		t.Fatalf("delay_scale 0 did not disable sleeping")
	}

	code, stdout, _ = runCLI(t, "main")
	if code != 0 || stdout != "42\n" {
		t.Fatalf("run by target name: %d %q", code, stdout)
	}
}

func TestDepsGitDependency(t *testing.T) {
	root := t.TempDir()
	home := filepath.Join(root, "home")
	t.Setenv(driver.HomeEnv, home)

	repoDir := filepath.Join(root, "kit")
	writeFile(t, filepath.Join(repoDir, driver.ManifestName), `
name: kit
targets:
  core:
    type: library
    main: core.json
`)
	writeFile(t, filepath.Join(repoDir, "core.json"), doubleLibrary)
	repo, first := initGitRepo(t, repoDir)

	app := filepath.Join(root, "app")
	writeFile(t, filepath.Join(app, driver.ManifestName), fmt.Sprintf(`
name: app
targets:
  main:
    type: executable
    main: main.json
dependencies:
  kit:
    git: %s
    branch: master
board:
  delay_scale: 0
`, repoDir))
	writeFile(t, filepath.Join(app, "main.json"), callDouble)
	chdir(t, app)

	code, _, stderr := runCLI(t, "deps", "install")
	if code != 0 {
		t.Fatalf("deps install failed: %s", stderr)
	}
	lock, err := driver.LoadLockfile(filepath.Join(app, driver.LockfileName))
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	pkg, ok := lock.Find("kit")
	if !ok {
		t.Fatalf("kit missing from lock: %#v", lock.Packages)
	}
	if want := fmt.Sprintf("git+%s@%s", repoDir, first); pkg.Source != want {
		t.Fatalf("Source = %q, want %q", pkg.Source, want)
	}
	if pkg.Version != "master@"+first {
		t.Fatalf("Version = %q", pkg.Version)
	}
	cached := driver.CachePath(home, "kit", pkg.Version)
	if _, err := os.Stat(filepath.Join(cached, "core.json")); err != nil {
		t.Fatalf("expected checkout at %s: %v", cached, err)
	}

	code, stdout, stderr := runCLI(t, "run")
	if code != 0 || stdout != "42\n" {
		t.Fatalf("run with git dependency: %d %q %s", code, stdout, stderr)
	}

	writeFile(t, filepath.Join(repoDir, "core.json"), strings.Replace(doubleLibrary, `"value": 2`, `"value": 3`, 1))
	second := commitAll(t, repo, repoDir, "triple")

	code, stdout, _ = runCLI(t, "deps", "install")
	if code != 0 || !strings.Contains(stdout, "Using locked kit") {
		t.Fatalf("install should keep the locked commit: %s", stdout)
	}

	code, _, stderr = runCLI(t, "deps", "update", "kit")
	if code != 0 {
		t.Fatalf("deps update failed: %s", stderr)
	}
	lock, err = driver.LoadLockfile(filepath.Join(app, driver.LockfileName))
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if pkg, _ := lock.Find("kit"); pkg.Version != "master@"+second {
		t.Fatalf("update did not move to the new commit: %#v", pkg)
	}

	code, stdout, _ = runCLI(t, "run")
	if code != 0 || stdout != "63\n" {
		t.Fatalf("run after update: %d %q", code, stdout)
	}
}

func TestDepsUpdateRejectsUnknownDependency(t *testing.T) {
	root := t.TempDir()
	t.Setenv(driver.HomeEnv, filepath.Join(root, "home"))
	writeFile(t, filepath.Join(root, driver.ManifestName), "name: app\n")
	chdir(t, root)

	code, _, stderr := runCLI(t, "deps", "update", "ghost")
	if code != 1 || !strings.Contains(stderr, `dependency "ghost" not declared`) {
		t.Fatalf("unexpected result %d: %s", code, stderr)
	}
}

func TestRunWithMetricsEndpoint(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(driver.HomeEnv, filepath.Join(dir, "home"))
	prog := filepath.Join(dir, "led.json")
	writeFile(t, prog, `{"type": "Program", "body": [
  {"type": "DeviceDeclaration", "line": 1, "name": "led", "declared_type": "LED", "args": [{"type": "IntegerLiteral", "value": 17}]}
]}`)
	code, _, stderr := runCLI(t, "--metrics-addr", "127.0.0.1:0", prog)
	if code != 0 {
		t.Fatalf("run with metrics failed: %s", stderr)
	}
}

func TestUsageAndVersion(t *testing.T) {
	code, _, stderr := runCLI(t)
	if code != 1 || !strings.Contains(stderr, "Usage:") {
		t.Fatalf("expected usage on stderr, got %d %q", code, stderr)
	}
	code, stdout, _ := runCLI(t, "version")
	if code != 0 || strings.TrimSpace(stdout) != cliToolVersion {
		t.Fatalf("unexpected version output %q", stdout)
	}
	code, _, _ = runCLI(t, "deps", "frobnicate")
	if code != 1 {
		t.Fatalf("unknown deps subcommand should fail")
	}
}

func TestLogLevel(t *testing.T) {
	if got := logLevel(false, false); got != zapcore.ErrorLevel {
		t.Fatalf("default level %v", got)
	}
	if got := logLevel(true, false); got != zapcore.DebugLevel {
		t.Fatalf("verbose level %v", got)
	}
	if got := logLevel(true, true); got != zapcore.FatalLevel {
		t.Fatalf("quiet should win over verbose, got %v", got)
	}
}

func TestDirChecksumIgnoresGitMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), "{}")
	before, err := dirChecksum(dir)
	if err != nil {
		t.Fatalf("dirChecksum: %v", err)
	}
	writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/master\n")
	after, err := dirChecksum(dir)
	if err != nil {
		t.Fatalf("dirChecksum: %v", err)
	}
	if before != after {
		t.Fatalf("checksum changed with .git contents")
	}
	writeFile(t, filepath.Join(dir, "b.json"), "{}")
	if changed, _ := dirChecksum(dir); changed == before {
		t.Fatalf("checksum ignored a new file")
	}
}

// chdir changes the working directory for the rest of the test and restores
// it on cleanup (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
