package blob

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
)

// MinPartSize is the minimum part size S3's multipart upload API
// accepts.
const MinPartSize = 5 * 1024 * 1024

// DefaultPartSize is the part size used when the caller does not
// override it.
const DefaultPartSize = 50 * 1024 * 1024

const (
	uploadAttempts = 10
	retryDelay     = 10 * time.Second
)

func newSession() (*session.Session, error) {
	opts := session.Options{SharedConfigState: session.SharedConfigEnable}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		opts.Config.Endpoint = aws.String(endpoint)
		opts.Config.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSessionWithOptions(opts)
	if err != nil {
		return nil, errors.Wrap(err, "blob: create aws session")
	}
	return sess, nil
}

func splitS3URI(path string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "blob: parse s3 uri %q", path)
	}
	if u.Scheme != "s3" {
		return "", "", errors.Errorf("blob: not an s3:// uri: %q", path)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// openS3 fetches an object as a single streamed GET; ranged or
// resumable reads are not needed here.
func openS3(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key, err := splitS3URI(path)
	if err != nil {
		return nil, err
	}
	sess, err := newSession()
	if err != nil {
		return nil, err
	}
	svc := s3.New(sess)
	out, err := svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "blob: get %q", path)
	}
	return out.Body, nil
}

// createS3 returns a writer that buffers data on local disk and
// uploads it to S3 using the multipart API once DefaultPartSize worth
// of data has accumulated.
func createS3(ctx context.Context, path string) (io.WriteCloser, error) {
	bucket, key, err := splitS3URI(path)
	if err != nil {
		return nil, err
	}
	sess, err := newSession()
	if err != nil {
		return nil, err
	}
	return newMultipartWriter(ctx, s3.New(sess), bucket, key, DefaultPartSize)
}
