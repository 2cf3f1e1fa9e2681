// Package errors provides the error taxonomy for the dataset pipeline.
// It pairs string-based error codes with a structured Error type that carries
// the failing operation and the object-store coordinates involved.
package errors

// ErrorCode classifies a pipeline failure.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Fatal errors. These abort a run before any entry is processed.

	// CodeConnectivity indicates the object store is unreachable or rejected
	// the credentials.
	CodeConnectivity ErrorCode = "CONNECTIVITY_ERROR"

	// CodeArchive indicates the archive object is missing, corrupt or truncated.
	CodeArchive ErrorCode = "ARCHIVE_ERROR"

	// Per-entry errors. These are recorded and processing continues.

	// CodeEntryValidation indicates an entry failed its format rules.
	CodeEntryValidation ErrorCode = "ENTRY_VALIDATION_ERROR"

	// CodeWrite indicates republishing an entry failed.
	CodeWrite ErrorCode = "WRITE_ERROR"

	// Observational.

	// CodeStructureWarning indicates an expected subpath is missing after processing.
	CodeStructureWarning ErrorCode = "STRUCTURE_WARNING"

	// Input errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Fatal reports whether errors carrying this code abort a run.
func (c ErrorCode) Fatal() bool {
	return c == CodeConnectivity || c == CodeArchive || c == CodeInvalidConfig
}
