// Package types defines the Store interface consumed by the record layer,
// the shared attribute and validation capabilities, filters and rows, and
// the standard error types for recordkit.
package types
