package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"mime"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
)

// maxListPage is the largest page S3 returns per ListObjectsV2 call.
const maxListPage int32 = 1000

// Get downloads an object fully into memory.
func (c *Client) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := validateTarget(bucket, key); err != nil {
		return nil, err
	}

	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, "get", bucket, key)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	var buf bytes.Buffer
	if n := aws.ToInt64(out.ContentLength); n > 0 {
		buf.Grow(int(n))
	}
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, mapError(err, "get", bucket, key)
	}
	return buf.Bytes(), nil
}

// Put uploads data to key in a single request, overwriting any existing object.
// The content type is detected from the payload, falling back to the key's extension.
func (c *Client) Put(ctx context.Context, bucket, key string, data []byte) error {
	if err := validateTarget(bucket, key); err != nil {
		return err
	}

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(detectContentType(key, data)),
	})
	if err != nil {
		return mapError(err, "put", bucket, key)
	}
	return nil
}

// Exists reports whether key exists using a HEAD request.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	if err := validateTarget(bucket, key); err != nil {
		return false, err
	}

	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		mapped := mapError(err, "head", bucket, key)
		if errors.IsObjectNotFound(mapped) {
			return false, nil
		}
		return false, mapped
	}
	return true, nil
}

// List returns the objects under prefix, following continuation tokens until
// the listing is exhausted or the MaxKeys bound is reached.
func (c *Client) List(
	ctx context.Context,
	bucket, prefix string,
	opts ...objectstore.ListOption,
) ([]objectstore.Object, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, err
	}
	cfg := objectstore.ApplyListOptions(opts)

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	var objects []objectstore.Object
	for {
		pageSize := maxListPage
		if cfg.MaxKeys > 0 {
			pageSize = min(cfg.MaxKeys-int32(len(objects)), maxListPage)
		}
		input.MaxKeys = aws.Int32(pageSize)

		out, err := c.s3Client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, mapError(err, "list", bucket, prefix)
		}

		for _, obj := range out.Contents {
			objects = append(objects, objectstore.Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
				ETag:         aws.ToString(obj.ETag),
			})
		}

		if cfg.MaxKeys > 0 && int32(len(objects)) >= cfg.MaxKeys {
			return objects[:cfg.MaxKeys], nil
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return objects, nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

func validateTarget(bucket, key string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return err
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) {
			e.WithBucket(bucket)
		}
		return err
	}
	return nil
}

// detectContentType sniffs data, preferring the extension mapping when the
// sniffed type is the generic fallback.
func detectContentType(key string, data []byte) string {
	detected := mimetype.Detect(data)
	if !detected.Is("application/octet-stream") && !detected.Is("text/plain") {
		return detected.String()
	}
	if byExt := mime.TypeByExtension(path.Ext(key)); byExt != "" {
		return byExt
	}
	return detected.String()
}
