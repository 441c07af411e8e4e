package fileop

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ImageExts are the extensions List picks up when no pattern is given.
var ImageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// Matcher selects file names. A nil Matcher accepts every known image
// extension.
type Matcher struct {
	g glob.Glob
}

// NewMatcher compiles a shell-style pattern such as "*_{left,front}.png".
// An empty pattern gives the default image matcher.
func NewMatcher(pattern string) (*Matcher, error) {
	if pattern == "" {
		return nil, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid match pattern %q: %w", pattern, err)
	}
	return &Matcher{g: g}, nil
}

func (m *Matcher) Match(name string) bool {
	if m == nil {
		return slices.Contains(ImageExts, strings.ToLower(filepath.Ext(name)))
	}
	return m.g.Match(name)
}

// List returns the names of the regular files in dir accepted by m.
func List(dir string, m *Matcher) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read folder %q: %w", dir, err)
	}

	var names []string
	for _, file := range files {
		if file.IsDir() || !m.Match(file.Name()) {
			continue
		}
		names = append(names, file.Name())
	}
	return names, nil
}

// ScanDir resolves dir to an absolute path and checks it is a directory.
func ScanDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(abs); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return "", fmt.Errorf("invalid scan path %q: %w", dir, err)
	}
	return abs, nil
}

// MkdirAll creates dir and its parents.
func MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", dir, err)
	}
	return nil
}

// CheckDest fails when dest already exists.
func CheckDest(dest string) error {
	destFileInfo, err := os.Stat(dest)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("cannot stat destination file %q: %w", dest, err)
		}
		return nil
	}
	return fmt.Errorf("destination file already exists: %q", destFileInfo.Name())
}

// WriteFile writes dest through a temporary file in the same directory
// and renames it into place once write succeeded, so readers never see a
// partial file. It returns the number of bytes written.
func WriteFile(dest string, write func(w io.Writer) error) (n int64, err error) {
	dir, name := filepath.Split(dest)
	if dir == "" {
		dir = "."
	}

	outFile, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return 0, fmt.Errorf("could not create temporary destination %q: %w", name, err)
	}
	canRename := false
	defer func() {
		if defErr := outFile.Sync(); defErr != nil && err == nil {
			err = fmt.Errorf("could not flush temporary destination %q: %w", name, defErr)
		}
		if defErr := outFile.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("could not close temporary destination %q: %w", name, defErr)
		}

		if canRename && err == nil {
			if defErr := os.Rename(outFile.Name(), dest); defErr != nil {
				err = fmt.Errorf("could not rename destination file %q: %w", name, defErr)
			}
		}
		if err != nil {
			if rmErr := os.Remove(outFile.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				slog.Error("could not remove temporary file", "name", outFile.Name(), "error", rmErr)
			}
		}
	}()

	cw := &countingWriter{w: outFile}
	if err = write(cw); err != nil {
		return cw.n, err
	}

	canRename = true
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// SwapExt replaces the extension of name.
func SwapExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
