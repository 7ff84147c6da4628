// Package cdo wraps the external CDO/NCO command-line operators that chains
// use as transformation sub-commands. The engine treats every command as an
// opaque collaborator: run it with a set of inputs and one output path, and
// either the output exists afterwards or the command failed.
package cdo

import "context"

// Command is a single external transformation sub-command.
type Command interface {
	// Name identifies the command in logs and error messages.
	Name() string

	// Run executes the command synchronously. On success the output path is
	// populated; on failure an error is returned and the chain aborts.
	Run(ctx context.Context, inputs []string, output string) error

	// InPlace reports whether the command mutates its sole input rather
	// than writing a distinct output file.
	InPlace() bool
}
