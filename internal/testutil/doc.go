// Package testutil provides test utilities and mocks for the dataset module.
// This package is internal and should only be used for testing within the module.
package testutil
