// Package errors defines error types for extension dispatch.
//
// This package provides structured error types that wrap the failure
// scenarios of the dispatch protocol: target state rejections, dispatch
// timeouts, listener construction failures and malformed frames. All error
// types support error unwrapping and can be checked using errors.Is,
// errors.As, and errors.AsType.
package errors
