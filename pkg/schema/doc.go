// Package schema declares the typed attributes of a model class and coerces
// untyped input, whether it comes from a caller or from a stored row, into
// those types. Persisted models and form models share the same Schema.
package schema
