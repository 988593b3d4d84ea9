// Package errors provides the classified error primitives used across prerender.
//
// A ClassifiedError carries a category (usage, config, registry, ...), a
// severity and free-form context. Usage errors are the user-facing failure
// class of the pipeline: they always abort the run and their message names the
// offending file or hook together with what to change.
//
// Example usage:
//
//	err := errors.UsageError("hook returned an invalid value").
//		WithContext("hook_file", hookFilePath).
//		Build()
package errors
