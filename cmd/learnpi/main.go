package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"learnpi/interpreter-go/pkg/driver"
)

const cliToolVersion = "learnpi 0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries the per-invocation streams and settings shared by subcommands.
type cli struct {
	stdout      io.Writer
	stderr      io.Writer
	log         *zap.Logger
	metricsAddr string
	color       bool
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("learnpi", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { printUsage(stderr) }
	verbose := flags.Bool("verbose", false, "log interpreter and hardware activity")
	quiet := flags.Bool("quiet", false, "suppress log output")
	metricsAddr := flags.String("metrics-addr", "", "serve prometheus metrics on this address while running")
	noColor := flags.Bool("no-color", false, "disable colored diagnostics")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	args = flags.Args()
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	logger := newLogger(stderr, logLevel(*verbose, *quiet))
	defer func() { _ = logger.Sync() }()
	c := &cli{
		stdout:      stdout,
		stderr:      stderr,
		log:         logger,
		metricsAddr: *metricsAddr,
		color:       !*noColor && isTerminal(stderr),
	}

	switch args[0] {
	case "help":
		printUsage(stdout)
		return 0
	case "version":
		fmt.Fprintln(stdout, cliToolVersion)
		return 0
	case "run":
		return c.runEntry(args[1:])
	case "deps":
		return c.runDeps(args[1:])
	default:
		return c.runEntry(args)
	}
}

func (c *cli) runEntry(args []string) int {
	program, ok := c.loadProgram(args)
	if !ok {
		return 1
	}
	return c.execute(program)
}

// loadProgram resolves the program named by args: a manifest target, a
// program file, or the manifest's default executable when args is empty.
func (c *cli) loadProgram(args []string) (*driver.Program, bool) {
	if len(args) > 1 {
		fmt.Fprintf(c.stderr, "unexpected arguments: %s\n", strings.Join(args[1:], " "))
		return nil, false
	}
	cacheDir, err := driver.ResolveHome()
	if err != nil {
		fmt.Fprintf(c.stderr, "failed to resolve %s: %v\n", driver.HomeEnv, err)
		return nil, false
	}
	loader := driver.NewLoader(cacheDir, c.log)

	manifest, err := manifestFromDir(".")
	if err != nil && (len(args) == 0 || !looksLikeProgramPath(args[0])) {
		fmt.Fprintf(c.stderr, "failed to load manifest: %v\n", err)
		return nil, false
	}

	var program *driver.Program
	switch {
	case len(args) == 0:
		if manifest == nil {
			fmt.Fprintf(c.stderr, "learnpi run requires a manifest target or program file (%s not found)\n", driver.ManifestName)
			return nil, false
		}
		target, err := manifest.DefaultExecutableTarget()
		if err != nil {
			fmt.Fprintf(c.stderr, "manifest error: %v\n", err)
			return nil, false
		}
		program, err = loader.LoadTarget(manifest, target)
		if err != nil {
			fmt.Fprintf(c.stderr, "%v\n", err)
			return nil, false
		}
	default:
		if target, ok := manifest.FindTarget(args[0]); ok {
			program, err = loader.LoadTarget(manifest, target)
		} else {
			program, err = loader.LoadFile(args[0])
		}
		if err != nil {
			fmt.Fprintf(c.stderr, "%v\n", err)
			return nil, false
		}
	}
	return program, true
}

func (c *cli) runDeps(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(c.stderr, "learnpi deps requires a subcommand (install, update)")
		return 1
	}
	switch args[0] {
	case "install":
		if len(args) > 1 {
			fmt.Fprintf(c.stderr, "learnpi deps install does not take arguments (received %s)\n", strings.Join(args[1:], " "))
			return 1
		}
		return c.runDepsInstall()
	case "update":
		return c.runDepsUpdate(args[1:])
	default:
		fmt.Fprintf(c.stderr, "unknown deps subcommand %q\n", args[0])
		return 1
	}
}

// manifestFromDir loads the nearest package.yml at or above dir, returning
// nil without error when there is none.
func manifestFromDir(dir string) (*driver.Manifest, error) {
	path, err := driver.FindManifest(dir)
	if err != nil || path == "" {
		return nil, err
	}
	return driver.LoadManifest(path)
}

func looksLikeProgramPath(arg string) bool {
	if strings.ContainsRune(arg, filepath.Separator) || strings.Contains(arg, "/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(arg)) {
	case ".json", ".yml", ".yaml":
		return true
	}
	return false
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  learnpi [flags] run [target]")
	fmt.Fprintln(w, "  learnpi [flags] run <program.json|program.yml>")
	fmt.Fprintln(w, "  learnpi [flags] <program.json|program.yml>")
	fmt.Fprintln(w, "  learnpi deps install")
	fmt.Fprintln(w, "  learnpi deps update [dependency ...]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  --verbose            log interpreter and hardware activity")
	fmt.Fprintln(w, "  --quiet              suppress log output")
	fmt.Fprintln(w, "  --metrics-addr ADDR  serve prometheus metrics while running")
	fmt.Fprintln(w, "  --no-color           disable colored diagnostics")
}
