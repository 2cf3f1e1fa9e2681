package s3

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/errors"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
)

// S3 error codes the backend classifies.
const (
	codeNoSuchKey             = "NoSuchKey"
	codeNotFound              = "NotFound"
	codeNoSuchBucket          = "NoSuchBucket"
	codeAccessDenied          = "AccessDenied"
	codeForbidden             = "Forbidden"
	codeInvalidAccessKeyID    = "InvalidAccessKeyId"
	codeSignatureDoesNotMatch = "SignatureDoesNotMatch"
	codeExpiredToken          = "ExpiredToken"
)

// mapError converts an SDK error into one wrapping the module sentinels,
// with operation and object context attached.
func mapError(err error, op, bucket, key string) error {
	if err == nil {
		return nil
	}
	return objectstore.NewError(op, bucket, key, classify(err))
}

func classify(err error) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	switch {
	case stderrors.As(err, &noSuchKey), stderrors.As(err, &notFound):
		return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
	case stderrors.As(err, &noSuchBucket):
		return fmt.Errorf("%w: %w", errors.ErrBucketNotFound, err)
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case codeNoSuchKey, codeNotFound:
			return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
		case codeNoSuchBucket:
			return fmt.Errorf("%w: %w", errors.ErrBucketNotFound, err)
		case codeAccessDenied, codeForbidden, codeInvalidAccessKeyID, codeSignatureDoesNotMatch, codeExpiredToken:
			return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
		}
		return err
	}

	// HEAD responses carry no body, so some failures only surface as a status code.
	var respErr *awshttp.ResponseError
	if stderrors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", errors.ErrObjectNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", errors.ErrAccessDenied, err)
		}
		return err
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: %w", errors.ErrConnection, err)
}
