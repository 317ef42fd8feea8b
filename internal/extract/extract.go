// Package extract unpacks the selected entries of a bundle archive.
//
// Entry paths are normalized (backslashes become slashes, leading "./" and
// "/" are dropped, the path is cleaned) before being matched against the
// include patterns with doublestar semantics: "*" matches within one path
// segment and "**" across segments. Directory entries are never written;
// parents are created as needed.
package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/chenyanfei-m/iconfont-updater/internal/logging"
	"github.com/chenyanfei-m/iconfont-updater/internal/types"
)

// Options configures an Extractor.
type Options struct {
	// Flatten writes every entry to the output directory under its base name.
	Flatten bool
}

// Extractor writes matching archive entries to disk.
type Extractor struct {
	opts Options
}

// New returns an Extractor.
func New(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Extract writes every file entry of archive whose normalized path matches
// one of includes below outputDir, overwriting existing files, and returns
// the number of files written. Directories, outputDir included, are created
// only for files that are written; an empty includes list writes nothing.
// The first failure aborts; files already written stay in place. Errors
// wrap types.ErrExtraction.
func (e *Extractor) Extract(archive []byte, outputDir string, includes []string) (int, error) {
	for _, p := range includes {
		if !doublestar.ValidatePattern(p) {
			return 0, fmt.Errorf("%w: invalid include pattern %q", types.ErrExtraction, p)
		}
	}

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	// Unsafe names are contained by the join below.
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return 0, fmt.Errorf("%w: reading archive: %w", types.ErrExtraction, err)
	}

	written := 0
	for _, f := range zr.File {
		if isDir(f) {
			continue
		}
		name := Normalize(f.Name)
		if name == "" || !Included(name, includes) {
			logging.Debug().Str("entry", f.Name).Msg("skipped")
			continue
		}
		if e.opts.Flatten {
			name = path.Base(name)
		}

		dest, err := securejoin.SecureJoin(outputDir, filepath.FromSlash(name))
		if err != nil {
			return written, fmt.Errorf("%w: resolving %s: %w", types.ErrExtraction, f.Name, err)
		}
		if err := writeEntry(f, dest); err != nil {
			return written, fmt.Errorf("%w: writing %s: %w", types.ErrExtraction, f.Name, err)
		}
		logging.Debug().Str("entry", f.Name).Str("dest", dest).Msg("extracted")
		written++
	}
	return written, nil
}

// Normalize turns an archive entry name into a clean relative slash path.
// It returns "" for names that do not denote a file below the root.
func Normalize(name string) string {
	p := strings.ReplaceAll(name, `\`, "/")
	for {
		switch {
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/"):
			p = p[1:]
		default:
			p = path.Clean(p)
			if p == "." || p == ".." {
				return ""
			}
			return p
		}
	}
}

// Included reports whether name matches any of patterns.
func Included(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func isDir(f *zip.File) bool {
	return f.FileInfo().IsDir() || strings.HasSuffix(strings.ReplaceAll(f.Name, `\`, "/"), "/")
}

func writeEntry(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
