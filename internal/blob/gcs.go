package blob

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores objects in a Google Cloud Storage bucket, the bucket type behind
// Firebase Storage.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS uses application default credentials, or talks to an emulator
// without authentication when endpoint is set.
func NewGCS(ctx context.Context, bucket, endpoint string) (*GCS, error) {
	var opts []option.ClientOption
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Put(ctx context.Context, path, contentType string, r io.Reader) (string, error) {
	obj := g.client.Bucket(g.bucket).Object(path)
	err := writeObject(ctx, func(ctx context.Context) io.WriteCloser {
		w := obj.NewWriter(ctx)
		w.ContentType = contentType
		return w
	}, r)
	if err != nil {
		return "", fmt.Errorf("gcs upload %s: %w", path, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, path), nil
}

// writeObject copies r into the writer returned by open. Closing a GCS
// writer commits the object, so on a failed copy the writer's context is
// cancelled instead and nothing is stored.
func writeObject(ctx context.Context, open func(context.Context) io.WriteCloser, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := open(ctx)
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		return err
	}
	return w.Close()
}

func (g *GCS) Close() error {
	return g.client.Close()
}
