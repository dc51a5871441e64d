package blob

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// multipartWriter implements io.WriteCloser over an S3 multipart
// upload. It buffers the current part on local disk, never in
// memory, to bound resident set, and uploads a part whenever the
// buffer reaches minPartSize.
type multipartWriter struct {
	ctx    context.Context
	svc    *s3.S3
	bucket string
	key    string

	minPartSize int64
	buf         *os.File
	bufBytes    int64

	uploadID   string
	partNum    int64
	completed  []*s3.CompletedPart
	totalBytes int64
}

func newMultipartWriter(ctx context.Context, svc *s3.S3, bucket, key string, minPartSize int64) (*multipartWriter, error) {
	if minPartSize < MinPartSize {
		minPartSize = MinPartSize
	}
	buf, err := os.CreateTemp("", "datawelder-s3-part-*")
	if err != nil {
		return nil, errors.Wrap(err, "blob: create multipart buffer")
	}
	return &multipartWriter{
		ctx:         ctx,
		svc:         svc,
		bucket:      bucket,
		key:         key,
		minPartSize: minPartSize,
		buf:         buf,
	}, nil
}

func (w *multipartWriter) Write(p []byte) (int, error) {
	n, err := w.buf.Write(p)
	w.bufBytes += int64(n)
	w.totalBytes += int64(n)
	if err != nil {
		return n, errors.Wrap(err, "blob: buffer s3 part")
	}
	if w.bufBytes >= w.minPartSize {
		if err := w.uploadNextPart(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Close flushes any buffered bytes and completes the multipart
// upload. If nothing was ever buffered (zero-byte write), the upload
// is never initiated and Close writes an empty object directly, since
// S3 rejects multipart uploads with zero parts.
func (w *multipartWriter) Close() error {
	defer os.Remove(w.buf.Name())

	if w.uploadID == "" && w.bufBytes == 0 {
		return w.putEmpty()
	}

	if w.bufBytes > 0 {
		if err := w.uploadNextPart(); err != nil {
			w.abort()
			return err
		}
	}

	_, err := w.svc.CompleteMultipartUploadWithContext(w.ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(w.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
		MultipartUpload: &s3.CompletedMultipartUpload{
			Parts: w.completed,
		},
	})
	if err != nil {
		w.abort()
		return errors.Wrapf(err, "blob: complete multipart upload %s/%s", w.bucket, w.key)
	}
	return nil
}

// Terminate cancels the in-progress multipart upload. blob.Abort
// calls this instead of Close on a failure path, so a failed
// partitioning run doesn't leave a dangling incomplete upload.
func (w *multipartWriter) Terminate() error {
	defer os.Remove(w.buf.Name())
	w.abort()
	return nil
}

func (w *multipartWriter) abort() {
	if w.uploadID == "" {
		return
	}
	_, err := w.svc.AbortMultipartUploadWithContext(w.ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(w.bucket),
		Key:      aws.String(w.key),
		UploadId: aws.String(w.uploadID),
	})
	if err != nil {
		vlog.Errorf("blob: abort multipart upload %s/%s: %v", w.bucket, w.key, err)
	}
}

func (w *multipartWriter) putEmpty() error {
	_, err := w.svc.PutObjectWithContext(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(nil),
	})
	return errors.Wrapf(err, "blob: put empty object %s/%s", w.bucket, w.key)
}

func (w *multipartWriter) uploadNextPart() error {
	if w.uploadID == "" {
		token := uuid.NewString()
		out, err := w.svc.CreateMultipartUploadWithContext(w.ctx, &s3.CreateMultipartUploadInput{
			Bucket: aws.String(w.bucket),
			Key:    aws.String(w.key),
		})
		if err != nil {
			return errors.Wrapf(err, "blob: initiate multipart upload %s/%s (client token %s)", w.bucket, w.key, token)
		}
		w.uploadID = aws.StringValue(out.UploadId)
	}

	if _, err := w.buf.Seek(0, 0); err != nil {
		return errors.Wrap(err, "blob: rewind s3 part buffer")
	}

	partNum := w.partNum + 1
	vlog.Infof("blob: uploading %s/%s part #%d, %s (total %s)",
		w.bucket, w.key, partNum, humanize.Bytes(uint64(w.bufBytes)), humanize.Bytes(uint64(w.totalBytes)))

	etag, err := uploadPartWithRetry(w.ctx, w.svc, w.bucket, w.key, w.uploadID, partNum, w.buf)
	if err != nil {
		return err
	}

	w.completed = append(w.completed, &s3.CompletedPart{
		ETag:       aws.String(etag),
		PartNumber: aws.Int64(partNum),
	})
	w.partNum = partNum

	if err := w.buf.Truncate(0); err != nil {
		return errors.Wrap(err, "blob: reset s3 part buffer")
	}
	if _, err := w.buf.Seek(0, 0); err != nil {
		return errors.Wrap(err, "blob: rewind s3 part buffer")
	}
	w.bufBytes = 0
	return nil
}

// uploadPartWithRetry retries transient connection errors up to
// uploadAttempts times with a retryDelay backoff.
func uploadPartWithRetry(ctx context.Context, svc *s3.S3, bucket, key, uploadID string, partNum int64, body *os.File) (etag string, err error) {
	for attempt := 0; attempt < uploadAttempts; attempt++ {
		if _, err = body.Seek(0, 0); err != nil {
			return "", errors.Wrap(err, "blob: rewind s3 part buffer")
		}
		out, uploadErr := svc.UploadPartWithContext(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(bucket),
			Key:        aws.String(key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int64(partNum),
			Body:       body,
		})
		if uploadErr == nil {
			return aws.StringValue(out.ETag), nil
		}
		err = uploadErr
		if !isRetryable(uploadErr) {
			return "", errors.Wrapf(err, "blob: upload part %d of %s/%s", partNum, bucket, key)
		}
		vlog.Errorf("blob: upload part %d of %s/%s failed (%v), retrying in %s (%d attempts left)",
			partNum, bucket, key, err, retryDelay, uploadAttempts-attempt-1)
		time.Sleep(retryDelay)
	}
	return "", errors.Wrapf(err, "blob: upload part %d of %s/%s: giving up after %d attempts", partNum, bucket, key, uploadAttempts)
}

func isRetryable(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case "RequestTimeout", "RequestTimeoutException", "InternalError", "SlowDown":
			return true
		}
		if _, ok := aerr.OrigErr().(interface{ Timeout() bool }); ok {
			return true
		}
	}
	return false
}
