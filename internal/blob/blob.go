package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/saxenaaman628/krathong-voting/config"
)

var (
	ErrNotImage = errors.New("only image files are accepted")
	ErrTooLarge = errors.New("file is too large")
	ErrBadKind  = errors.New("kind must be krathong or team")
)

// Store keeps a payload under path and returns a publicly fetchable URL.
type Store interface {
	Put(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}

// sniffLen covers every signature mimetype looks at for images.
const sniffLen = 3072

// Uploader validates images and names them before handing them to a Store.
type Uploader struct {
	store    Store
	maxBytes int64
	now      func() time.Time
}

func NewUploader(store Store, maxBytes int64) *Uploader {
	return &Uploader{store: store, maxBytes: maxBytes, now: time.Now}
}

// Upload stores an image of the given kind ("krathong" or "team") and
// returns its URL along with the detected MIME type.
func (u *Uploader) Upload(ctx context.Context, kind, filename string, r io.Reader) (string, string, error) {
	if kind != "krathong" && kind != "team" {
		return "", "", ErrBadKind
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	mtype := mimetype.Detect(head)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", "", fmt.Errorf("%w (got %s)", ErrNotImage, mtype.String())
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	if u.maxBytes > 0 {
		body = &limitedReader{r: body, remaining: u.maxBytes}
	}

	key := u.objectPath(kind, filename, mtype.Extension())
	url, err := u.store.Put(ctx, key, mtype.String(), body)
	if err != nil {
		return "", "", err
	}
	return url, mtype.String(), nil
}

func (u *Uploader) objectPath(kind, filename, ext string) string {
	name := sanitizeName(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	if name == "" {
		name = kind
	}
	id := strings.SplitN(uuid.New().String(), "-", 2)[0]
	return fmt.Sprintf("%ss/%d_%s_%s%s", kind, u.now().UnixMilli(), id, name, ext)
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteRune('_')
		}
		if b.Len() >= 64 {
			break
		}
	}
	return b.String()
}

// limitedReader fails instead of silently truncating like io.LimitReader.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

// New builds the Store selected by cfg.BlobBackend.
func New(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.BlobBackend {
	case "local":
		return NewLocal(cfg.BlobLocalDir, cfg.BlobPublicURL)
	case "gcs":
		return NewGCS(ctx, cfg.BlobBucket, cfg.BlobEndpoint)
	case "s3":
		return NewS3(ctx, cfg.BlobBucket, cfg.BlobEndpoint)
	}
	return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
}
