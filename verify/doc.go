// Package verify checks that a republished dataset has the expected layout.
//
// Verification is observational: a missing subpath or a malformed manifest is
// reported, never treated as a failure of the run.
package verify
