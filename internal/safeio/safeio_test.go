package safeio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileThenRead(t *testing.T) {
	d, err := OpenDir(filepath.Join(t.TempDir(), "snapshots"), true)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if err := d.WriteFile("2025-06-01.json", []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := d.WriteFile("2025-06-01.json", []byte(`{"a":2}`), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := d.ReadFile("2025-06-01.json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"a":2}` {
		t.Fatalf("got %s", got)
	}
	entries, err := d.ReadDir(".")
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestRejectsEscapes(t *testing.T) {
	d, err := OpenDir(t.TempDir(), false)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	for _, name := range []string{"../x", "/etc/passwd", "", "a/../../x"} {
		if err := d.WriteFile(name, []byte("x"), 0o644); err == nil {
			t.Fatalf("write %q should fail", name)
		}
		if _, err := d.ReadFile(name); err == nil {
			t.Fatalf("read %q should fail", name)
		}
	}
}

func TestReadMissingIsNotExist(t *testing.T) {
	d, err := OpenDir(t.TempDir(), false)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if _, err := d.ReadFile("missing.json"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestSymlinkOutsideRootIsRejected(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("s"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}
	d, err := OpenDir(root, false)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if _, err := d.ReadFile("link.txt"); err == nil {
		t.Fatalf("expected escape via symlink to fail")
	}
}

func TestAppendFile(t *testing.T) {
	d, err := OpenDir(t.TempDir(), false)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	for _, line := range []string{"a\n", "b\n"} {
		if err := d.AppendFile("run/log.jsonl", []byte(line), 0o644); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got, _ := d.ReadFile("run/log.jsonl")
	if string(got) != "a\nb\n" {
		t.Fatalf("got %q", got)
	}
}
