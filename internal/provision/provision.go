// Package provision fetches the rendering engine binary.
//
// A version marker file names the engine build. Run downloads the archive
// for that version and platform, optionally verifies its SHA-256 and
// extracts it into the output directory. Every input comes from Config;
// nothing is read from the executable location or working directory.
package provision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrBadStatus is returned when the archive server does not answer 200.
	ErrBadStatus = errors.New("provision: unexpected HTTP status")
	// ErrChecksum is returned when the archive digest does not match.
	ErrChecksum = errors.New("provision: checksum mismatch")
)

// ArchiveSuffix is appended to the platform name to form the archive file
// name.
const ArchiveSuffix = "-embedder.zip"

// Config holds every input of a provisioning run.
type Config struct {
	// BasePath is the directory the marker path is relative to, usually
	// the directory of the running executable.
	BasePath string

	// MarkerPath locates the version marker relative to BasePath.
	MarkerPath string

	// BaseURL is the archive server root.
	BaseURL string

	Platform Platform

	// OutputDir receives the extracted files.
	OutputDir string

	// SHA256 is the expected hex digest of the archive. Empty skips the
	// check.
	SHA256 string

	// HTTPClient performs the download. Nil uses http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives progress and skipped entries. Nil discards.
	Logger *slog.Logger
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (c *Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Result reports what Run did.
type Result struct {
	Version string
	URL     string
	Files   int
	Skipped []string
}

// ReadVersion returns the trimmed contents of the version marker.
func ReadVersion(cfg *Config) (string, error) {
	path := cfg.MarkerPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.BasePath, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read version marker: %w", err)
	}
	version := strings.TrimSpace(string(data))
	if version == "" {
		return "", fmt.Errorf("version marker %s is empty", path)
	}
	return version, nil
}

// ArchiveURL returns <base>/<version>/<platform>/<platform>-embedder.zip.
func ArchiveURL(cfg *Config, version string) (string, error) {
	if cfg.Platform == PlatformUnknown {
		return "", fmt.Errorf("%w: none selected", ErrUnsupportedPlatform)
	}
	if cfg.BaseURL == "" {
		return "", errors.New("provision: empty base URL")
	}
	platform := cfg.Platform.String()
	return url.JoinPath(cfg.BaseURL, version, platform, platform+ArchiveSuffix)
}

// Download fetches the archive for version into a temporary file and
// returns its path. The caller removes the file.
func Download(ctx context.Context, cfg *Config, version string) (string, error) {
	archiveURL, err := ArchiveURL(cfg, version)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := cfg.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", archiveURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s returned %s", ErrBadStatus, archiveURL, resp.Status)
	}

	f, err := os.CreateTemp("", "engine-*.zip")
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write archive: %w", err)
	}
	cfg.logger().Info("engine archive downloaded", "url", archiveURL, "bytes", n)
	return f.Name(), nil
}

// VerifySHA256 compares the digest of the file at path with want (hex,
// case-insensitive).
func VerifySHA256(path, want string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash archive: %w", err)
	}
	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, strings.TrimSpace(want)) {
		return fmt.Errorf("%w: got %s, want %s", ErrChecksum, got, want)
	}
	return nil
}

// Run reads the version marker, downloads and verifies the archive and
// extracts it into cfg.OutputDir.
func Run(ctx context.Context, cfg *Config) (*Result, error) {
	version, err := ReadVersion(cfg)
	if err != nil {
		return nil, err
	}
	archiveURL, err := ArchiveURL(cfg, version)
	if err != nil {
		return nil, err
	}
	archive, err := Download(ctx, cfg, version)
	if err != nil {
		return nil, err
	}
	defer os.Remove(archive)

	if cfg.SHA256 != "" {
		if err := VerifySHA256(archive, cfg.SHA256); err != nil {
			return nil, err
		}
	}
	files, skipped, err := Extract(ctx, archive, cfg.OutputDir, cfg.logger())
	if err != nil {
		return nil, err
	}
	cfg.logger().Info("engine provisioned", "version", version, "platform", cfg.Platform, "files", files)
	return &Result{Version: version, URL: archiveURL, Files: files, Skipped: skipped}, nil
}
