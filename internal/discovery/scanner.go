// Package discovery scans a prioritized set of directories for custom tool
// source files.
//
// Priority order: explicit override, then the workspace tools directory,
// then the user-home tools directory. Logically identical directories are
// scanned exactly once. A missing directory yields one diagnostic and is
// never fatal.
package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Source tags where a tool file was found.
type Source string

const (
	// SourceCustom marks files from an explicitly configured directory.
	SourceCustom Source = "custom"

	// SourceWorkspace marks files from the workspace tools directory.
	SourceWorkspace Source = "workspace"

	// SourceUser marks files from the user-home tools directory.
	SourceUser Source = "user"
)

// Fixed tool directory layout beneath a workspace or home root.
const (
	appDirName  = ".toolsmith"
	toolDirName = "tools"
)

// SourceFile is one candidate tool file. Contents are read fresh on every
// load pass and never persisted.
type SourceFile struct {
	Path   string
	Name   string
	Source Source
}

// Directory is one scan candidate.
type Directory struct {
	Path   string
	Source Source
}

// MissingDir reports a candidate directory that could not be listed.
type MissingDir struct {
	Path   string
	Source Source
	Err    error
}

// Scanner discovers tool files on disk.
type Scanner struct {
	log *zap.Logger

	// home is injectable for tests; defaults to os.UserHomeDir.
	home func() (string, error)
}

// NewScanner creates a scanner.
func NewScanner(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{log: log, home: os.UserHomeDir}
}

// Directories builds the deduplicated candidate list. When customDir is
// given it is normalized to end in the tool subdirectory name and used
// alone; otherwise up to two candidates are built from the workspace root
// and the user's home.
func (s *Scanner) Directories(customDir, workspace string) []Directory {
	var candidates []Directory

	if customDir != "" {
		dir := customDir
		if filepath.Base(dir) != toolDirName {
			dir = filepath.Join(dir, toolDirName)
		}
		candidates = append(candidates, Directory{Path: dir, Source: SourceCustom})
	} else {
		if workspace != "" {
			candidates = append(candidates, Directory{
				Path:   filepath.Join(workspace, appDirName, toolDirName),
				Source: SourceWorkspace,
			})
		}
		if home, err := s.home(); err == nil && home != "" {
			candidates = append(candidates, Directory{
				Path:   filepath.Join(home, appDirName, toolDirName),
				Source: SourceUser,
			})
		}
	}

	// Dedup by normalized absolute path: two logically identical
	// directories must yield exactly one scan.
	seen := make(map[string]bool, len(candidates))
	out := make([]Directory, 0, len(candidates))
	for _, d := range candidates {
		norm, err := filepath.Abs(filepath.Clean(d.Path))
		if err != nil {
			norm = filepath.Clean(d.Path)
		}
		if seen[norm] {
			continue
		}
		seen[norm] = true
		d.Path = norm
		out = append(out, d)
	}
	return out
}

// Scan lists every candidate directory and returns the matching tool files
// plus one MissingDir per directory that could not be listed.
func (s *Scanner) Scan(customDir, workspace string) ([]SourceFile, []MissingDir) {
	var files []SourceFile
	var missing []MissingDir

	for _, dir := range s.Directories(customDir, workspace) {
		entries, err := os.ReadDir(dir.Path)
		if err != nil {
			missing = append(missing, MissingDir{Path: dir.Path, Source: dir.Source, Err: err})
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !IsToolFile(entry.Name()) {
				continue
			}
			files = append(files, SourceFile{
				Path:   filepath.Join(dir.Path, entry.Name()),
				Name:   entry.Name(),
				Source: dir.Source,
			})
		}
		s.log.Debug("scanned tool directory",
			zap.String("dir", dir.Path),
			zap.String("source", string(dir.Source)))
	}

	return files, missing
}

// IsToolFile reports whether a filename matches the tool naming convention:
// a case-insensitive "-tool" suffix before the .go extension. Test files
// are always excluded regardless of name.
func IsToolFile(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, "_test.go") {
		return false
	}
	return strings.HasSuffix(lower, "-tool.go")
}
