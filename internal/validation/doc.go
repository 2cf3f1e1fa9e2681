// Package validation checks bucket names, object keys and dataset prefixes
// before they are sent to an object store.
package validation
