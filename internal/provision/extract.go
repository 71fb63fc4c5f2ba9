package provision

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// safeName reports whether an archive entry name stays inside the output
// directory: relative, and without a ".." segment.
func safeName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) || filepath.IsAbs(name) {
		return false
	}
	if len(name) >= 2 && name[1] == ':' {
		return false
	}
	segments := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	return !slices.Contains(segments, "..")
}

// Extract writes the regular files of the zip archive into outDir and
// returns how many were written and which entries were skipped. Entries
// with unsafe names, directories, symlinks and other special files are not
// written. Files are extracted concurrently.
func Extract(ctx context.Context, archive, outDir string, logger *slog.Logger) (int, []string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		err = nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, nil, fmt.Errorf("create output dir: %w", err)
	}

	var (
		mu      sync.Mutex
		skipped []string
		written int
	)
	skip := func(name, reason string) {
		logger.Warn("skipping archive entry", "name", name, "reason", reason)
		mu.Lock()
		skipped = append(skipped, name)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !safeName(f.Name) {
			skip(f.Name, "unsafe path")
			continue
		}
		if !f.Mode().IsRegular() {
			skip(f.Name, "not a regular file")
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := extractFile(f, filepath.Join(outDir, filepath.FromSlash(f.Name))); err != nil {
				return err
			}
			mu.Lock()
			written++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return written, skipped, err
	}
	slices.Sort(skipped)
	return written, skipped, nil
}

func extractFile(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", f.Name, err)
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer src.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil { //nolint:gosec // archive size is bounded by the trusted engine build
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}
