// Package registry provides the capability registry: the explicit object
// that stores every operation descriptor of an application instance, grouped
// by capability class.
//
// Descriptors arrive from two directions. Go modules register ready-made
// descriptors and named handler functions; operation manifests then bind
// handler names to descriptor metadata. PopulateFromModel validates that the
// two sides agree, so a mismatch between Go code and manifests fails at
// startup rather than mid-run.
//
// A Registry is constructed once and passed to its consumers. Nothing here
// is process-global, so tests can build as many independent registries as
// they need.
package registry
