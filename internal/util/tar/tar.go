// Package tar bundles a dataset directory into a single gzip-compressed
// tarball so it can be uploaded and registered as one object.
package tar

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/ipdata/ipdata/internal/diskspace"
	"github.com/ipdata/ipdata/internal/localfs"
)

// Extension is appended to archive names.
const Extension = ".tar.gz"

// Options controls which files go into an archive.
type Options struct {
	// Include keeps only files whose base name matches one of the patterns.
	Include []string
	// Exclude drops files whose base name matches one of the patterns.
	// Ignored when Include is set.
	Exclude []string
	// IncludeHidden archives dot files too.
	IncludeHidden bool
}

// Result describes a written archive.
type Result struct {
	Path       string
	Files      int
	InputBytes int64
	Size       int64
}

// ArchiveName returns "<dir base>.tar.gz" for sourceDir.
func ArchiveName(sourceDir string) string {
	base := filepath.Base(filepath.Clean(sourceDir))
	base = strings.TrimLeft(base, ".")
	if base == "" || base == string(filepath.Separator) {
		base = "archive"
	}
	return base + Extension
}

// Create writes sourceDir into outputPath. Entries are stored under
// "<dir base>/<relative path>". Free space at outputPath is checked against
// the uncompressed input size before anything is written, and a partial
// archive is removed on failure.
func Create(ctx context.Context, sourceDir, outputPath string, opts Options) (*Result, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("source directory does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path is not a directory: %s", sourceDir)
	}

	var files []localfs.FileEntry
	err = localfs.Walk(sourceDir, localfs.Options{IncludeHidden: opts.IncludeHidden}, func(e localfs.FileEntry) error {
		if shouldInclude(e.Name, opts.Include, opts.Exclude) {
			files = append(files, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", sourceDir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", localfs.ErrNoFiles, sourceDir)
	}

	total := localfs.TotalSize(files)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := diskspace.Check(outputPath, total, diskspace.DefaultSafetyMargin); err != nil {
		return nil, err
	}

	if err := write(ctx, outputPath, filepath.Base(filepath.Clean(sourceDir)), files); err != nil {
		os.Remove(outputPath)
		return nil, err
	}

	out, err := os.Stat(outputPath)
	if err != nil {
		return nil, err
	}
	return &Result{Path: outputPath, Files: len(files), InputBytes: total, Size: out.Size()}, nil
}

func write(ctx context.Context, outputPath, prefix string, files []localfs.FileEntry) error {
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for _, e := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(tw, e, path.Join(prefix, e.Rel)); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	return f.Close()
}

func addFile(tw *tar.Writer, e localfs.FileEntry, name string) error {
	src, err := os.Open(e.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", e.Path, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to create tar header: %w", err)
	}
	header.Name = name

	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}
	// The header size is authoritative; a file growing mid-copy must not overflow it.
	if _, err := io.CopyN(tw, src, header.Size); err != nil {
		return fmt.Errorf("failed to write %s: %w", e.Path, err)
	}
	return nil
}

// shouldInclude applies include-only or exclude patterns to a base name.
func shouldInclude(name string, include, exclude []string) bool {
	if len(include) > 0 {
		for _, p := range include {
			if ok, err := filepath.Match(p, name); err == nil && ok {
				return true
			}
		}
		return false
	}
	for _, p := range exclude {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return false
		}
	}
	return true
}
