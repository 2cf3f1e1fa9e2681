// Package pipeline runs the dataset archive pipeline: preflight the archive,
// validate and republish every entry, verify the resulting layout and
// aggregate statistics into a Report.
//
// A preflight failure is the only way a run fails. Once entries are being
// processed, invalid entries, failed writes and verification problems are
// recorded in the report and every remaining stage still runs.
package pipeline
