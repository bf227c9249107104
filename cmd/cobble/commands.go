package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/nullcatalyst/cobble/pkg/config"
	"github.com/nullcatalyst/cobble/pkg/discovery"
	"github.com/nullcatalyst/cobble/pkg/journal"
	"github.com/nullcatalyst/cobble/pkg/logger"
	"github.com/nullcatalyst/cobble/pkg/mailbox"
	"github.com/nullcatalyst/cobble/pkg/platform"
	"github.com/nullcatalyst/cobble/pkg/plugin"
	"github.com/nullcatalyst/cobble/pkg/plugin/clang"
	"github.com/nullcatalyst/cobble/pkg/plugin/copier"
	"github.com/nullcatalyst/cobble/pkg/runner"
	"github.com/nullcatalyst/cobble/pkg/settings"
	"github.com/nullcatalyst/cobble/pkg/toolchain"
	"github.com/nullcatalyst/cobble/pkg/watcher"
)

// verbosity is a boolean flag that counts how often it is set.
type verbosity int

func (v *verbosity) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosity) IsBoolFlag() bool { return true }

func (v *verbosity) Set(s string) error {
	on, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if on {
		*v++
	} else {
		*v = 0
	}
	return nil
}

// buildFlags are shared by watch and build.
type buildFlags struct {
	verbose  verbosity
	release  bool
	tmpDir   string
	platform string
	linkMode string
	files    []string
}

func parseBuildFlags(name string, args []string) (*buildFlags, error) {
	f := &buildFlags{}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Var(&f.verbose, "v", "verbose logging")
	fs.BoolVar(&f.release, "release", false, "build the release variant")
	fs.StringVar(&f.tmpDir, "t", "", "scratch directory for object files")
	fs.StringVar(&f.platform, "m", "", "target platform (win32, darwin, linux, wasm)")
	fs.StringVar(&f.linkMode, "link-mode", "", "link scheduling (serialized, concurrent)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	f.files = fs.Args()

	if f.platform != "" {
		if _, err := platform.Parse(f.platform); err != nil {
			return nil, err
		}
	}
	if f.linkMode != "" {
		if _, err := clang.ParseLinkMode(f.linkMode); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// environment is everything a build needs, set up from configuration and
// flags.
type environment struct {
	config  *config.Config
	logger  logger.Logger
	store   journal.Store
	tally   *runner.Tally
	runner  *runner.Runner
	tmpDir  string
	cleanup []func()
}

func newEnvironment(configPath string, f *buildFlags) (env *environment, err error) {
	cfg, err := config.NewLoader(configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if f.linkMode != "" {
		cfg.Build.LinkMode = f.linkMode
	}
	if f.tmpDir != "" {
		cfg.Build.TmpDir = f.tmpDir
	}

	log := logger.New(logger.Config{
		Level:  logger.LevelForVerbosity(cfg.Logging.Level, int(f.verbose)),
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	env = &environment{config: cfg, logger: log}
	defer func() {
		if err != nil {
			env.close()
		}
	}()

	if err := env.prepareTmpDir(); err != nil {
		return env, err
	}

	target := platform.Host()
	if f.platform != "" {
		if target, err = platform.Parse(f.platform); err != nil {
			return env, err
		}
	}

	files := f.files
	if len(files) == 0 {
		found, discErr := discovery.New([]string{"."}, []string{env.tmpDir}, log).Discover()
		if discErr != nil {
			return env, fmt.Errorf("failed to discover build files: %w", discErr)
		}
		for _, bf := range found {
			files = append(files, bf.Path)
		}
	}

	env.openJournal()

	mailboxes := mailbox.Immediate()
	if cfg.Watch.Coalesce == config.CoalesceDebounce {
		mailboxes = mailbox.Debounce(cfg.Watch.CoalesceWindow)
	}

	linkMode, err := clang.ParseLinkMode(cfg.Build.LinkMode)
	if err != nil {
		return env, err
	}

	tc, err := toolchain.NewClang(toolchain.ClangConfig{
		Compiler:   cfg.Build.Compiler,
		CompilerCL: cfg.Build.CompilerCL,
		Std:        cfg.Build.Std,
	}, log)
	if err != nil {
		return env, fmt.Errorf("failed to set up toolchain: %w", err)
	}

	registry, err := plugin.NewRegistry(
		clang.New(tc, clang.Config{
			TmpDir:    env.tmpDir,
			LinkMode:  linkMode,
			Mailboxes: mailboxes,
			Journal:   env.tally,
		}, log),
		copier.New(copier.Config{
			Mailboxes: mailboxes,
			Journal:   env.tally,
		}, log),
	)
	if err != nil {
		return env, err
	}

	env.runner = runner.New(runner.Config{
		Files:     files,
		Target:    target,
		Release:   f.release,
		Mailboxes: mailboxes,
	}, registry, log)

	return env, nil
}

// prepareTmpDir creates the scratch directory. A directory cobble creates
// itself is removed again on close.
func (e *environment) prepareTmpDir() error {
	if e.config.Build.TmpDir != "" {
		abs, err := filepath.Abs(journal.ExpandHome(e.config.Build.TmpDir))
		if err != nil {
			return fmt.Errorf("invalid scratch directory: %w", err)
		}
		if err := os.MkdirAll(abs, 0755); err != nil {
			return fmt.Errorf("failed to create scratch directory: %w", err)
		}
		e.tmpDir = abs
		return nil
	}

	dir, err := os.MkdirTemp("", "cobble-")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	e.tmpDir = dir
	e.cleanup = append(e.cleanup, func() {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove scratch directory", "path", dir, "error", err)
		}
	})
	return nil
}

// openJournal opens the build journal. A journal that cannot be opened,
// for example because another cobble holds it, only disables recording.
func (e *environment) openJournal() {
	e.tally = runner.NewTally(journal.Discard)
	if !e.config.Journal.Enabled {
		return
	}

	store, err := journal.Open(journal.Config{
		DBPath:    e.config.Journal.DBPath,
		Retention: e.config.Journal.Retention,
	}, e.logger)
	if err != nil {
		e.logger.Warn("build journal unavailable, not recording", "error", err)
		return
	}

	e.store = store
	e.tally = runner.NewTally(store)
	e.cleanup = append(e.cleanup, func() {
		if err := store.Close(); err != nil {
			e.logger.Error("failed to close journal", "error", err)
		}
	})
}

// close releases everything in reverse order of creation.
func (e *environment) close() {
	if e.runner != nil {
		if err := e.runner.Stop(); err != nil && !errors.Is(err, runner.ErrRunnerClosed) {
			e.logger.Error("failed to stop runner", "error", err)
		}
	}
	for i := len(e.cleanup) - 1; i >= 0; i-- {
		e.cleanup[i]()
	}
	e.cleanup = nil
}

// runBuildCommand builds once and reports failed steps as an error.
func runBuildCommand(configPath string, args []string) error {
	f, err := parseBuildFlags("build", args)
	if err != nil {
		return err
	}

	env, err := newEnvironment(configPath, f)
	if err != nil {
		return err
	}
	defer env.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := env.runner.Load(ctx); err != nil {
		return err
	}

	bus := watcher.NewBus(env.logger)
	if err := env.runner.Start(ctx, bus); err != nil {
		return err
	}

	if n := env.tally.Failed(); n > 0 {
		return fmt.Errorf("%d build step(s) failed, see `cobble history -failed -output`", n)
	}

	fmt.Fprintf(stdout, "Built %s (%d steps)\n", names(env.runner.Settings()), env.tally.Total())
	return nil
}

// runWatchCommand builds, then follows edits until interrupted.
func runWatchCommand(configPath string, args []string) error {
	f, err := parseBuildFlags("watch", args)
	if err != nil {
		return err
	}

	env, err := newEnvironment(configPath, f)
	if err != nil {
		return err
	}
	defer env.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := env.runner.Load(ctx); err != nil {
		return err
	}

	root, err := env.runner.Root()
	if err != nil {
		return err
	}

	ignore := append([]string{env.tmpDir}, env.runner.OutDirs()...)
	ignore = append(ignore, env.config.Watch.Ignore...)

	fw, err := watcher.NewFileWatcher(watcher.Config{
		Ignore:                  ignore,
		SettleInterval:          env.config.Watch.SettleInterval,
		CircuitBreakerThreshold: env.config.Watch.CircuitBreakerThreshold,
	}, env.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize watcher: %w", err)
	}
	defer func() {
		if err := fw.Close(); err != nil {
			env.logger.Error("failed to close watcher", "error", err)
		}
	}()

	if err := fw.Start(ctx, root); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if err := env.runner.Start(ctx, fw); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Watching %s for %s - press Ctrl+C to stop\n", root, names(env.runner.Settings()))

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(stdout, "Stopping...")
			return nil

		case err, ok := <-fw.Errors():
			if !ok {
				return nil
			}
			if errors.Is(err, watcher.ErrCircuitBreakerOpen) {
				return err
			}
			env.logger.Error("watcher error", "error", err)
		}
	}
}

// runSchemaCommand prints the build file JSON schema.
func runSchemaCommand() error {
	data, err := json.MarshalIndent(settings.Schema(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

func names(all []*settings.BuildSettings) string {
	out := make([]string, 0, len(all))
	for _, s := range all {
		out = append(out, s.Name)
	}
	return strings.Join(out, ", ")
}
