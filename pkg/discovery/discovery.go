// Package discovery finds cobble build files below a set of directories.
//
// It is used when no build file is named on the command line. Every
// directory contributes at most one build file, picked by name in the
// order of Names.
//
// Example usage:
//
//	d := discovery.New([]string{"."}, []string{".cobble-tmp"}, logger.Default())
//	files, err := d.Discover()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, f := range files {
//	    fmt.Printf("build file: %s (%s)\n", f.Path, f.Format)
//	}
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Logger defines the logging interface used by the discovery package.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Names lists the recognized build file names, most preferred first.
var Names = []string{"build.yaml", "build.yml", "build.json", "build.toml"}

// skipDirs are directory names that are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// BuildFile represents a discovered build file.
type BuildFile struct {
	// Path is the absolute path to the build file.
	Path string

	// Dir is the directory containing the build file.
	Dir string

	// Format is the file extension without the dot (yaml, yml, json, toml).
	Format string

	// ModTime is the last modification time.
	ModTime int64 // Unix timestamp
}

// Discoverer provides methods for discovering build files.
type Discoverer interface {
	// Discover walks the configured directories and returns every build
	// file found, in walk order.
	Discover() ([]BuildFile, error)

	// DiscoverDir returns the build file of a single directory without
	// descending into subdirectories.
	DiscoverDir(dir string) (BuildFile, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	baseDirs []string
	skip     []string
	logger   Logger
}

// New creates a new Discoverer instance.
//
// Parameters:
//   - baseDirs: directories to walk
//   - skip: absolute or relative paths never descended into, such as the
//     scratch directory
//   - logger: Logger instance for diagnostic messages
func New(baseDirs, skip []string, logger Logger) Discoverer {
	abs := make([]string, 0, len(skip))
	for _, p := range skip {
		if a, err := filepath.Abs(expandHome(p)); err == nil {
			abs = append(abs, a)
		}
	}

	return &discoverer{
		baseDirs: baseDirs,
		skip:     abs,
		logger:   logger,
	}
}

// Discover implements Discoverer.Discover.
func (d *discoverer) Discover() ([]BuildFile, error) {
	var all []BuildFile

	for _, baseDir := range d.baseDirs {
		expandedDir, err := filepath.Abs(expandHome(baseDir))
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPath, baseDir)
		}

		if _, err := os.Stat(expandedDir); err != nil {
			if os.IsNotExist(err) {
				d.logger.Warn("directory not found, skipping", "path", expandedDir)
				continue
			}
			return nil, fmt.Errorf("failed to stat directory %s: %w", expandedDir, err)
		}

		files, err := d.walk(expandedDir)
		if err != nil {
			return nil, fmt.Errorf("failed to scan directory %s: %w", expandedDir, err)
		}

		all = append(all, files...)
	}

	if len(all) == 0 {
		return nil, ErrNoBuildFiles
	}

	d.logger.Info("discovery complete", "build_files", len(all))
	return all, nil
}

// DiscoverDir implements Discoverer.DiscoverDir.
func (d *discoverer) DiscoverDir(dir string) (BuildFile, error) {
	expandedDir, err := filepath.Abs(expandHome(dir))
	if err != nil {
		return BuildFile{}, fmt.Errorf("%w: %s", ErrInvalidPath, dir)
	}

	if _, err := os.Stat(expandedDir); err != nil {
		if os.IsNotExist(err) {
			return BuildFile{}, fmt.Errorf("%w: %s", ErrDirectoryNotFound, expandedDir)
		}
		return BuildFile{}, fmt.Errorf("failed to stat directory %s: %w", expandedDir, err)
	}

	f, ok := d.scanDirectory(expandedDir)
	if !ok {
		return BuildFile{}, fmt.Errorf("%w in %s", ErrNoBuildFiles, expandedDir)
	}
	return f, nil
}

func (d *discoverer) walk(root string) ([]BuildFile, error) {
	var files []BuildFile

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				d.logger.Warn("failed to read directory", "path", path, "error", err)
				return fs.SkipDir
			}
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path != root && (skipDirs[entry.Name()] || d.skipped(path)) {
			d.logger.Debug("skipping directory", "path", path)
			return fs.SkipDir
		}

		if f, ok := d.scanDirectory(path); ok {
			files = append(files, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// scanDirectory returns the preferred build file in dir.
func (d *discoverer) scanDirectory(dir string) (BuildFile, bool) {
	var found []BuildFile

	for _, name := range Names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		found = append(found, BuildFile{
			Path:    path,
			Dir:     dir,
			Format:  strings.TrimPrefix(filepath.Ext(name), "."),
			ModTime: info.ModTime().Unix(),
		})
	}

	if len(found) == 0 {
		return BuildFile{}, false
	}
	if len(found) > 1 {
		d.logger.Warn("several build files in one directory, using the first",
			"dir", dir,
			"using", filepath.Base(found[0].Path),
			"count", len(found))
	}
	return found[0], true
}

func (d *discoverer) skipped(path string) bool {
	for _, s := range d.skip {
		if path == s || strings.HasPrefix(path, s+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// expandHome expands ~ in file paths to the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	return filepath.Join(homeDir, path[2:])
}
