package localdump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileWriter puts rendered pages on disk.
type FileWriter interface {
	Write(ctx context.Context, page LocalMarkdown) error
}

// DiskWriter writes pages below ContentDir, creating directories as needed.
type DiskWriter struct {
	ContentDir string

	// When false, nothing touches the disk; handy to see what a sync would do.
	WriteMarkdown bool
}

func (w *DiskWriter) Write(ctx context.Context, page LocalMarkdown) error {
	// Does local repo exist?
	stat, err := os.Stat(w.ContentDir)
	if err != nil {
		return fmt.Errorf("localdump: cannot stat '%s': %w", w.ContentDir, err)
	}
	if !stat.IsDir() {
		return fmt.Errorf("localdump: content path not a directory: '%s'", w.ContentDir)
	}

	abs, err := w.destination(page.RelativePath)
	if err != nil {
		return err
	}

	if !w.WriteMarkdown {
		// exit early to dry run
		return nil
	}

	directory := filepath.Dir(abs)
	if err = os.MkdirAll(directory, 0750); err != nil {
		return fmt.Errorf("localdump: couldn't create directory %s: %w", directory, err)
	}

	if err := os.WriteFile(abs, []byte(page.Content), 0640); err != nil {
		return fmt.Errorf("localdump: couldn't write to file %s: %w", abs, err)
	}

	return nil
}

// destination refuses paths that would land outside the content directory. Page names come from
// whoever edits the database.
func (w *DiskWriter) destination(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("localdump: empty output path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("localdump: output path '%s' must be relative", rel)
	}

	abs := filepath.Join(w.ContentDir, filepath.FromSlash(rel))
	within, err := filepath.Rel(w.ContentDir, abs)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("localdump: output path '%s' escapes %s", rel, w.ContentDir)
	}
	return abs, nil
}
