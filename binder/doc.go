// Package binder decodes HTTP requests of the detection API into typed
// request structs: JSON bodies for batch detection and query parameters for
// single lookups. Binders have the signature expected by handler.Wrap.
package binder
