package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local writes files below a directory that the HTTP server exposes under
// publicURL.
type Local struct {
	dir       string
	publicURL string
}

func NewLocal(dir, publicURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, publicURL: strings.TrimSuffix(publicURL, "/")}, nil
}

func (l *Local) Put(ctx context.Context, path, _ string, r io.Reader) (string, error) {
	dst := filepath.Join(l.dir, filepath.FromSlash(path))
	if !strings.HasPrefix(dst, filepath.Clean(l.dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return l.publicURL + "/" + path, nil
}
