// Package publish copies finished GRIB files to a gocloud blob bucket
// (file://, mem:// or s3:// URLs).
package publish

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Publisher uploads local files to a bucket.
type Publisher struct {
	bucket *blob.Bucket
	fs     afero.Fs
}

// Open opens the bucket at bucketURL. Local files are read from fs.
func Open(ctx context.Context, bucketURL string, fs afero.Fs) (*Publisher, error) {
	bkt, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}

	return &Publisher{bucket: bkt, fs: fs}, nil
}

// Publish streams localPath to key. A failed upload leaves no object behind.
func (p *Publisher) Publish(ctx context.Context, localPath, key string) error {
	f, err := p.fs.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	// Canceling the writer context before Close aborts the upload.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := p.bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("create object %s: %w", key, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finish upload %s: %w", key, err)
	}

	return nil
}

// Bucket returns the underlying bucket.
func (p *Publisher) Bucket() *blob.Bucket {
	return p.bucket
}

// Close closes the bucket.
func (p *Publisher) Close() error {
	return p.bucket.Close()
}

// KeyFor returns the object key of localPath: its path relative to root,
// with forward slashes.
func KeyFor(root, localPath string) (string, error) {
	rel, err := filepath.Rel(root, localPath)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", localPath, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", localPath, root)
	}
	return filepath.ToSlash(rel), nil
}
