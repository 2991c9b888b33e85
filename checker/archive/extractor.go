// Package archive unpacks an uploaded project zip, keeping only its src/ tree.
package archive

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"

	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
)

const srcDir = "src"

// DefaultExcludeDirs are the generated boilerplate trees the checker never evaluates.
var DefaultExcludeDirs = []string{"auth", "user"}

// Extraction describes what was written to disk.
type Extraction struct {
	Root  string   // target directory, src/ lives directly below it
	Files []string // slash-separated paths relative to Root, in archive order
}

// ControllerFiles returns the *.controller.ts files in archive order.
func (e *Extraction) ControllerFiles() []string {
	var out []string
	for _, f := range e.Files {
		if strings.HasSuffix(f, ".controller.ts") {
			out = append(out, f)
		}
	}
	return out
}

// Abs resolves a file of the extraction to an absolute path.
func (e *Extraction) Abs(rel string) string {
	return filepath.Join(e.Root, filepath.FromSlash(rel))
}

// Fingerprint is the hex SHA-256 of the archive bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TargetPath derives the deterministic extraction directory for an archive.
func TargetPath(workDir string, data []byte) string {
	return filepath.Join(workDir, "project-"+Fingerprint(data)[:16])
}

type entry struct {
	file *zip.File
	name string // relative to the project root, starts with src
}

// Extract removes extractPath, recreates it and writes the src/ entries of the
// archive, skipping anything below one of excludeDirs. Partially written output
// is left in place on failure.
func Extract(data []byte, extractPath string, excludeDirs []string) (*Extraction, error) {
	start := time.Now()

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", permcheck_errors.ErrArchiveCorrupt, err)
	}

	if err := os.RemoveAll(extractPath); err != nil {
		return nil, fmt.Errorf("%w: clearing %s: %v", permcheck_errors.ErrExtractionFailed, extractPath, err)
	}
	if err := os.MkdirAll(extractPath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", permcheck_errors.ErrExtractionFailed, extractPath, err)
	}

	entries, err := filterEntries(reader.File, excludeDirs)
	if err != nil {
		return nil, err
	}

	// Directories first so that files never depend on an entry not yet written.
	for _, e := range entries {
		if !isDir(e) {
			continue
		}
		if err := os.MkdirAll(filepath.Join(extractPath, filepath.FromSlash(e.name)), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", permcheck_errors.ErrExtractionFailed, e.name, err)
		}
	}

	result := &Extraction{Root: extractPath}
	for _, e := range entries {
		if isDir(e) {
			continue
		}
		if err := writeFile(e, extractPath); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", permcheck_errors.ErrExtractionFailed, e.name, err)
		}
		result.Files = append(result.Files, e.name)
	}

	logger.Info("Project archive extracted",
		zap.String("path", extractPath),
		zap.Int("files", len(result.Files)),
		zap.Duration("duration", time.Since(start)))
	return result, nil
}

func filterEntries(files []*zip.File, excludeDirs []string) ([]entry, error) {
	prefix := projectPrefix(files)
	excluded := make(map[string]struct{}, len(excludeDirs))
	for _, d := range excludeDirs {
		excluded[d] = struct{}{}
	}

	var entries []entry
	for _, f := range files {
		name := strings.TrimPrefix(strings.ReplaceAll(f.Name, "\\", "/"), prefix)
		if name != srcDir && name != srcDir+"/" && !strings.HasPrefix(name, srcDir+"/") {
			continue
		}

		clean := path.Clean(name)
		if clean != srcDir && !strings.HasPrefix(clean, srcDir+"/") {
			return nil, fmt.Errorf("%w: entry %q escapes the project root", permcheck_errors.ErrArchiveCorrupt, f.Name)
		}

		if underExcludedDir(clean, strings.HasSuffix(name, "/") || f.FileInfo().IsDir(), excluded) {
			continue
		}
		entries = append(entries, entry{file: f, name: clean})
	}
	return entries, nil
}

// projectPrefix detects archives that wrap the project in one top-level folder.
func projectPrefix(files []*zip.File) string {
	for _, f := range files {
		if f.Name == srcDir || strings.HasPrefix(f.Name, srcDir+"/") {
			return ""
		}
	}
	for _, f := range files {
		parts := strings.SplitN(f.Name, "/", 3)
		if len(parts) >= 2 && parts[1] == srcDir {
			return parts[0] + "/"
		}
	}
	return ""
}

// underExcludedDir reports whether any directory component of name is excluded.
// The final component only counts when the entry itself is a directory.
func underExcludedDir(name string, dir bool, excluded map[string]struct{}) bool {
	parts := strings.Split(name, "/")
	last := len(parts) - 1
	if dir {
		last = len(parts)
	}
	for _, p := range parts[1:last] {
		if _, ok := excluded[p]; ok {
			return true
		}
	}
	return false
}

func isDir(e entry) bool {
	return strings.HasSuffix(e.file.Name, "/") || e.file.FileInfo().IsDir()
}

func writeFile(e entry, root string) error {
	target := filepath.Join(root, filepath.FromSlash(e.name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := e.file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
