// Package config defines the format-agnostic configuration model for the
// application, along with the Loader interface for producing it from a
// concrete format.
//
// The config.Model is the single source of truth for the app and executor
// packages. The concrete HCL implementation of Loader lives in the hcl
// package.
package config
