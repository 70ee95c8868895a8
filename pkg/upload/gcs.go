package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"

	"cloud.google.com/go/storage"
	"github.com/tauraamui/archbooth/pkg/recorder"
	"github.com/tauraamui/xerror"
	"google.golang.org/api/option"
)

type objectWriterFunc func(ctx context.Context, object, contentType string, metadata map[string]string) io.WriteCloser

// GCS writes recordings into a bucket and shares their public url.
type GCS struct {
	bucket    string
	prefix    string
	newWriter objectWriterFunc
	close     func() error
}

func NewGCS(ctx context.Context, bucket, prefix, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if len(credentialsFile) > 0 {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, xerror.Errorf("unable to create storage client: %w", err)
	}

	handle := client.Bucket(bucket)
	return &GCS{
		bucket: bucket,
		prefix: prefix,
		newWriter: func(ctx context.Context, object, contentType string, metadata map[string]string) io.WriteCloser {
			w := handle.Object(object).NewWriter(ctx)
			w.ContentType = contentType
			w.Metadata = metadata
			return w
		},
		close: client.Close,
	}, nil
}

func (g *GCS) Upload(ctx context.Context, blob recorder.Blob) (string, error) {
	object := path.Join(g.prefix, FileName(blob.Format.Extension))

	wc := g.newWriter(ctx, object, blob.MediaType, describe(blob))
	if _, err := wc.Write(blob.Data); err != nil {
		wc.Close() //nolint
		return "", xerror.Errorf("unable to write %s to bucket %s: %w", object, g.bucket, err)
	}
	if err := wc.Close(); err != nil {
		return "", xerror.Errorf("unable to finish %s in bucket %s: %w", object, g.bucket, err)
	}

	return publicURL(g.bucket, object), nil
}

func (g *GCS) Close() error {
	if g.close == nil {
		return nil
	}
	return g.close()
}

func publicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, (&url.URL{Path: object}).EscapedPath())
}
