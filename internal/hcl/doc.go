// Package hcl provides the concrete HCL implementation of the configuration
// Loader interface defined in the config package. It is responsible for all
// file parsing, HCL-to-model translation, and resolution of file references
// declared inside job files.
package hcl
