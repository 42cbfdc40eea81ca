package safeio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Dir confines reads and writes to one directory tree.
type Dir struct {
	absRoot string // absolute root with symlinks resolved
}

// OpenDir binds a Dir to root, creating it when create is set.
func OpenDir(root string, create bool) (*Dir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("safeio: empty root")
	}
	if create {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, err
		}
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("safeio: root is not a directory")
	}
	return &Dir{absRoot: abs}, nil
}

func (d *Dir) Root() string {
	if d == nil {
		return ""
	}
	return d.absRoot
}

// ReadFile reads name relative to the root.
func (d *Dir) ReadFile(name string) ([]byte, error) {
	p, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("safeio: path is a directory")
	}
	return os.ReadFile(p)
}

// ReadDir lists a directory relative to the root.
func (d *Dir) ReadDir(name string) ([]fs.DirEntry, error) {
	p, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(p)
}

// WriteFile replaces name atomically: data goes to a temp file in the same
// directory which is then renamed over the target.
func (d *Dir) WriteFile(name string, data []byte, perm fs.FileMode) error {
	target, err := d.target(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, target)
}

// AppendFile appends data to name, creating it if needed.
func (d *Dir) AppendFile(name string, data []byte, perm fs.FileMode) error {
	target, err := d.target(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// target validates a relative path for writing. The file itself may not
// exist yet, so only the lexical path is checked.
func (d *Dir) target(name string) (string, error) {
	if d == nil {
		return "", errors.New("safeio: directory not configured")
	}
	clean, err := relClean(name)
	if err != nil {
		return "", err
	}
	p := filepath.Join(d.absRoot, clean)
	if !hasPathPrefix(p, d.absRoot) || p == d.absRoot {
		return "", fmt.Errorf("safeio: invalid target %q", name)
	}
	return p, nil
}

func relClean(name string) (string, error) {
	if name == "" {
		return "", errors.New("safeio: empty path")
	}
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || (runtime.GOOS == "windows" && filepath.VolumeName(clean) != "") {
		return "", errors.New("safeio: absolute paths not allowed")
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.New("safeio: path traversal not allowed")
	}
	return clean, nil
}

func (d *Dir) resolve(name string) (string, error) {
	if d == nil {
		return "", errors.New("safeio: directory not configured")
	}
	clean, err := relClean(name)
	if err != nil {
		return "", err
	}
	if clean == "." {
		return d.absRoot, nil
	}
	resolved, err := filepath.EvalSymlinks(filepath.Join(d.absRoot, clean))
	if err != nil {
		return "", err
	}
	if !hasPathPrefix(resolved, d.absRoot) {
		return "", fmt.Errorf("safeio: resolved outside root (root=%s, path=%s)", d.absRoot, resolved)
	}
	return resolved, nil
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path+sep, root)
}
