package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsToolFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"word-count-tool.go", true},
		{"Word-Count-Tool.go", true},
		{"WORD-COUNT-TOOL.GO", true},
		{"word-count-tool_test.go", false},
		{"word-count.go", false},
		{"tool.go", false},
		{"word-tool.txt", false},
		{"-tool.go", true},
	}

	for _, tt := range tests {
		if got := IsToolFile(tt.name); got != tt.want {
			t.Errorf("IsToolFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestScanFiltersEntries(t *testing.T) {
	workspace := t.TempDir()
	dir := filepath.Join(workspace, appDirName, toolDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{
		"echo-tool.go",
		"Echo-Tool.go",
		"echo-tool_test.go",
		"helper.go",
		"notes.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("package main\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub-tool.go"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewScanner(nil)
	s.home = func() (string, error) { return "", os.ErrNotExist }

	files, missing := s.Scan("", workspace)
	if len(missing) != 0 {
		t.Fatalf("unexpected missing dirs: %+v", missing)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2: %+v", len(files), files)
	}
	for _, f := range files {
		if f.Source != SourceWorkspace {
			t.Errorf("file %s has source %q, want workspace", f.Name, f.Source)
		}
	}
}

func TestScanMissingDirectoryIsNonFatal(t *testing.T) {
	workspace := t.TempDir()
	home := t.TempDir()

	homeTools := filepath.Join(home, appDirName, toolDirName)
	if err := os.MkdirAll(homeTools, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(homeTools, "greet-tool.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewScanner(nil)
	s.home = func() (string, error) { return home, nil }

	// Workspace tools dir does not exist; home dir does.
	files, missing := s.Scan("", workspace)
	if len(missing) != 1 {
		t.Fatalf("got %d missing dirs, want 1", len(missing))
	}
	if missing[0].Source != SourceWorkspace {
		t.Errorf("missing dir source = %q, want workspace", missing[0].Source)
	}
	if len(files) != 1 || files[0].Source != SourceUser {
		t.Fatalf("home-relative file should still load, got %+v", files)
	}
}

func TestDirectoriesExplicitOverride(t *testing.T) {
	s := NewScanner(nil)
	s.home = func() (string, error) { return "/home/someone", nil }

	dirs := s.Directories("/opt/extensions", "/work/project")
	if len(dirs) != 1 {
		t.Fatalf("explicit dir should be used alone, got %d", len(dirs))
	}
	if dirs[0].Source != SourceCustom {
		t.Errorf("source = %q, want custom", dirs[0].Source)
	}
	if filepath.Base(dirs[0].Path) != toolDirName {
		t.Errorf("explicit dir should be normalized to end in %q, got %s", toolDirName, dirs[0].Path)
	}

	// Already-normalized explicit dir is not doubled.
	dirs = s.Directories("/opt/extensions/tools", "")
	if filepath.Base(filepath.Dir(dirs[0].Path)) == toolDirName {
		t.Errorf("normalization doubled the subdir: %s", dirs[0].Path)
	}
}

func TestDirectoriesDeduplicate(t *testing.T) {
	workspace := t.TempDir()

	s := NewScanner(nil)
	// Home equal to the workspace: both candidates normalize to one path.
	s.home = func() (string, error) { return workspace, nil }

	dirs := s.Directories("", workspace)
	if len(dirs) != 1 {
		t.Fatalf("identical candidates must yield exactly one scan, got %d: %+v", len(dirs), dirs)
	}

	// A non-clean spelling of the same directory also dedups.
	s.home = func() (string, error) {
		return filepath.Join(workspace, "sub", ".."), nil
	}
	dirs = s.Directories("", workspace)
	if len(dirs) != 1 {
		t.Fatalf("unnormalized duplicate should dedup, got %d: %+v", len(dirs), dirs)
	}
}
