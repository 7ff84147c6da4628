// Package registry provides the central "glue" for the stage system.
//
// The Registry stores the mapping between the stage-name tokens used in job
// files (e.g., "convert_unit") and the compiled step-variant factories that
// implement them. Stage modules register themselves during application
// startup, and chain construction consults the registry eagerly so that an
// unknown stage name fails immediately instead of being silently accepted.
package registry
