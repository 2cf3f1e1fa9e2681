// Package config loads pipeline and backend settings from the environment,
// an optional .env file and command-line overrides.
//
// Every setting is read from a DATASET_-prefixed environment variable, for
// example DATASET_BUCKET or DATASET_ARCHIVE_KEY.
package config
