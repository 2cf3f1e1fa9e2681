package testutil

import (
	"bytes"
	"crypto/md5" //nolint:gosec // ETag emulation
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to the given int64.
func Int64Ptr(i int64) *int64 {
	return &i
}

// Int32Ptr returns a pointer to the given int32.
func Int32Ptr(i int32) *int32 {
	return &i
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool {
	return &b
}

// TimePtr returns a pointer to the given time.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// CalculateETag calculates the single-part ETag for the given data.
func CalculateETag(data []byte) string {
	h := md5.Sum(data) //nolint:gosec // ETag emulation
	return fmt.Sprintf(`"%x"`, h)
}

// CreateTestObject creates a listing entry for mocked ListObjectsV2 responses.
func CreateTestObject(key string, size int64, lastModified time.Time) types.Object {
	return types.Object{
		Key:          StringPtr(key),
		Size:         Int64Ptr(size),
		LastModified: TimePtr(lastModified),
		ETag:         CalculateETagPtr([]byte(key)),
		StorageClass: types.ObjectStorageClassStandard,
	}
}

// CalculateETagPtr is CalculateETag returning a pointer.
func CalculateETagPtr(data []byte) *string {
	return StringPtr(CalculateETag(data))
}

// CreateGetObjectOutput creates a GetObjectOutput streaming data.
func CreateGetObjectOutput(data []byte, contentType string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: Int64Ptr(int64(len(data))),
		ContentType:   StringPtr(contentType),
		ETag:          StringPtr(CalculateETag(data)),
		LastModified:  TimePtr(time.Now()),
	}
}

// EncodeToken encodes a listing offset as a continuation token.
func EncodeToken(offset int) string {
	return "token-" + strconv.Itoa(offset)
}

// DecodeToken reverses EncodeToken. Unknown tokens decode to zero.
func DecodeToken(token string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(token, "token-"))
	if err != nil {
		return 0
	}
	return n
}
