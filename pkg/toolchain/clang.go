package toolchain

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nullcatalyst/cobble/pkg/depfile"
	"github.com/nullcatalyst/cobble/pkg/logger"
	"github.com/nullcatalyst/cobble/pkg/platform"
)

// DefaultStd is the language standard used when none is configured.
const DefaultStd = "c++17"

// ClangConfig contains Clang configuration.
type ClangConfig struct {
	// Compiler is the clang command, split with shell quoting
	// (default: "clang").
	Compiler string

	// CompilerCL is the MSVC-style driver used to compile and link win32
	// targets (default: "clang-cl").
	CompilerCL string

	// Std is the fallback language standard (default: c++17).
	Std string

	// Host is the platform cobble runs on (default: detected).
	Host platform.Platform

	// Stdout and Stderr receive compiler output as it is produced
	// (default: os.Stdout and os.Stderr).
	Stdout io.Writer
	Stderr io.Writer

	// Run replaces process execution, for tests.
	Run RunFunc
}

// Clang drives clang and clang-cl.
type Clang struct {
	cc     []string
	cl     []string
	std    string
	host   platform.Platform
	run    RunFunc
	logger logger.Logger
}

// NewClang creates a Clang toolchain.
func NewClang(cfg ClangConfig, log logger.Logger) (*Clang, error) {
	if cfg.Compiler == "" {
		cfg.Compiler = "clang"
	}
	if cfg.CompilerCL == "" {
		cfg.CompilerCL = "clang-cl"
	}
	if cfg.Std == "" {
		cfg.Std = DefaultStd
	}
	if cfg.Host == "" {
		cfg.Host = platform.Host()
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Run == nil {
		cfg.Run = Spawner{Stdout: cfg.Stdout, Stderr: cfg.Stderr}.Run
	}
	if log == nil {
		log = logger.Noop()
	}

	cc, err := SplitCommand(cfg.Compiler)
	if err != nil {
		return nil, err
	}
	cl, err := SplitCommand(cfg.CompilerCL)
	if err != nil {
		return nil, err
	}

	return &Clang{
		cc:     cc,
		cl:     cl,
		std:    cfg.Std,
		host:   cfg.Host,
		run:    cfg.Run,
		logger: log.With("component", "toolchain"),
	}, nil
}

// Dependencies runs clang -MM over every source at once.
func (c *Clang) Dependencies(ctx context.Context, srcs []string, opts Options) (map[string][]string, error) {
	if len(srcs) == 0 {
		return map[string][]string{}, nil
	}

	args := append([]string(nil), c.cc...)
	args = append(args, c.args(opts, "", srcs, false, false)...)
	args = append(args, "-MM")

	c.logger.Debug("discovering dependencies", "sources", len(srcs), "command", strings.Join(args, " "))

	res, err := c.run(ctx, Command{Args: args, Dir: opts.Dir, Quiet: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list dependencies: %w", err)
	}

	rules, err := depfile.ParseString(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dependency listing: %w", err)
	}
	return depfile.Headers(rules, opts.Dir), nil
}

// Compile compiles one source into obj.
func (c *Clang) Compile(ctx context.Context, src, obj string, opts Options) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(obj), 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create object directory: %w", err)
	}

	cl := opts.Target == platform.Win32
	args := c.driver(cl)
	args = append(args, c.platformArgs(opts.Target, cl)...)
	args = append(args, c.args(opts, obj, []string{src}, false, cl)...)

	c.logger.Debug("compiling", "src", src, "command", strings.Join(args, " "))
	return c.run(ctx, Command{Args: args, Dir: opts.Dir})
}

// Link links objs into output.
func (c *Clang) Link(ctx context.Context, objs []string, output string, opts Options) (Result, error) {
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return Result{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	cl := opts.Target == platform.Win32
	args := c.driver(cl)
	args = append(args, c.platformArgs(opts.Target, cl)...)
	args = append(args, c.args(opts, output, objs, true, cl)...)

	for _, lib := range opts.Libs {
		if cl {
			args = append(args, lib)
		} else {
			args = append(args, "-l", lib)
		}
	}
	args = append(args, opts.LinkFlags...)

	c.logger.Debug("linking", "output", output, "objects", len(objs), "command", strings.Join(args, " "))
	return c.run(ctx, Command{Args: args, Dir: opts.Dir})
}

func (c *Clang) driver(cl bool) []string {
	if cl {
		return append([]string(nil), c.cl...)
	}
	return append([]string(nil), c.cc...)
}

// platformArgs are needed when cross compiling from the host.
func (c *Clang) platformArgs(target platform.Platform, cl bool) []string {
	if cl || target == c.host {
		return nil
	}

	switch target {
	case platform.Wasm:
		return []string{
			"--target=wasm32-unknown-unknown", "-Xlinker", "--no-entry", "-nostdlib",
			"-mmultivalue", "-Xclang", "-target-abi", "-Xclang", "experimental-mv",
			"-msimd128",
			"-mtail-call",
		}
	default:
		return nil
	}
}

func (c *Clang) args(opts Options, output string, inputs []string, link, cl bool) []string {
	std := opts.Std
	if std == "" {
		std = c.std
	}

	var args []string
	if cl {
		if output != "" {
			args = append(args, "/o", output)
		}
		args = append(args, "/std:"+std)
		if !link {
			args = append(args, "/c")
		}
		for _, inc := range opts.Includes {
			args = append(args, "/I", inc)
		}
		for _, def := range opts.Defines {
			args = append(args, "/D"+def)
		}
	} else {
		if output != "" {
			args = append(args, "-o", output)
		}
		args = append(args, "-std="+std)
		if !link {
			args = append(args, "-c")
		}
		for _, inc := range opts.Includes {
			args = append(args, "-I", inc)
		}
		for _, def := range opts.Defines {
			args = append(args, "-D", def)
		}
	}

	args = append(args, inputs...)
	return append(args, opts.Flags...)
}
