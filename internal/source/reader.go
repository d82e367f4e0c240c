// Package source reads spreadsheet sources from a URL or from the upload directory.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrNoBaseDir is returned for local paths when no upload directory is configured
	ErrNoBaseDir = errors.New("no local directory is configured for sources")
	// ErrForbiddenPath is returned for paths that could leave the upload directory
	ErrForbiddenPath = errors.New("forbidden source path")
	// ErrNotReadable is returned when the source is missing or cannot be read
	ErrNotReadable = errors.New("source not readable")
	// ErrEmpty is returned for a source without content
	ErrEmpty = errors.New("source is empty")
	// ErrTooLarge is returned when the source exceeds the size limit
	ErrTooLarge = errors.New("source is too large")
)

// Control characters, separators and shell or URL metacharacters
var forbiddenChars = regexp.MustCompile("[[:cntrl:]/\\\\?<>:*%|\"'`&;#+^$]")

// Reader resolves a source string to bytes
type Reader struct {
	baseDir string
	maxSize int64
	client  *http.Client
}

// NewReader creates a reader. Local sources are file names inside baseDir.
// A maxSize of zero disables the size check.
func NewReader(baseDir string, maxSize int64, timeout time.Duration) *Reader {
	return &Reader{
		baseDir: baseDir,
		maxSize: maxSize,
		client:  &http.Client{Timeout: timeout},
	}
}

// IsURL reports whether the source is fetched over http(s)
func IsURL(src string) bool {
	u, err := url.Parse(strings.TrimSpace(src))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Read returns the content of a URL or of a file in the base directory
func (r *Reader) Read(ctx context.Context, src string) ([]byte, string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, "", fmt.Errorf("%w: no source given", ErrNotReadable)
	}
	if IsURL(src) {
		return r.fetch(ctx, src)
	}
	content, err := r.readFile(src)
	return content, "", err
}

// Path validates a local source name and returns its location on disk
func (r *Reader) Path(name string) (string, error) {
	if r.baseDir == "" {
		return "", ErrNoBaseDir
	}
	if err := CheckName(name); err != nil {
		return "", err
	}
	return filepath.Join(r.baseDir, name), nil
}

// CheckName rejects local source names that could leave the upload directory
func CheckName(name string) error {
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q contains \"..\"", ErrForbiddenPath, name)
	}
	if forbiddenChars.MatchString(name) {
		return fmt.Errorf("%w: %q contains forbidden characters", ErrForbiddenPath, name)
	}
	return nil
}

func (r *Reader) readFile(name string) ([]byte, error) {
	path, err := r.Path(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotReadable, name)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	if r.maxSize > 0 && info.Size() > r.maxSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, name)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotReadable, name, err)
	}
	return content, nil
}

// fetch downloads a URL. The second value is the declared content type.
func (r *Reader) fetch(ctx context.Context, src string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotReadable, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotReadable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: %s returned %s", ErrNotReadable, src, resp.Status)
	}

	body := io.Reader(resp.Body)
	if r.maxSize > 0 {
		body = io.LimitReader(resp.Body, r.maxSize+1)
	}
	content, err := io.ReadAll(body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotReadable, err)
	}
	if r.maxSize > 0 && int64(len(content)) > r.maxSize {
		return nil, "", fmt.Errorf("%w: %s", ErrTooLarge, src)
	}
	if len(content) == 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrEmpty, src)
	}
	return content, resp.Header.Get("Content-Type"), nil
}
