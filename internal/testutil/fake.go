// Package testutil provides fake sub-commands and stage variants so that
// engine tests can observe execution without invoking any external binary.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/vk/cmorize/internal/cdo"
	"github.com/vk/cmorize/internal/chain"
	"github.com/vk/cmorize/internal/registry"
)

// CommandLog is a thread-safe record of executed fake commands.
type CommandLog struct {
	mu      sync.Mutex
	entries []string
}

// Record appends one entry to the log.
func (l *CommandLog) Record(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

// Entries returns a copy of all recorded entries.
func (l *CommandLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

// Count returns the number of recorded entries.
func (l *CommandLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// FakeCommand is an in-process stand-in for an external sub-command. A
// non-mutating command writes the concatenation of its inputs to the output
// path; a mutating one appends to its sole input in place.
type FakeCommand struct {
	CommandName string
	Mutates     bool
	FailWith    error
	Log         *CommandLog
}

func (c *FakeCommand) Name() string  { return c.CommandName }
func (c *FakeCommand) InPlace() bool { return c.Mutates }

func (c *FakeCommand) Run(ctx context.Context, inputs []string, output string) error {
	if c.FailWith != nil {
		return c.FailWith
	}
	if c.Log != nil {
		c.Log.Record(fmt.Sprintf("%s(%s)->%s", c.CommandName, strings.Join(inputs, ","), output))
	}

	if c.Mutates {
		f, err := os.OpenFile(inputs[0], os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = fmt.Fprintf(f, "[%s]", c.CommandName)
		return err
	}

	var content strings.Builder
	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return err
		}
		content.Write(data)
	}
	fmt.Fprintf(&content, "[%s]", c.CommandName)
	return os.WriteFile(output, []byte(content.String()), 0o644)
}

// StageVariant is a configurable chain.Variant for tests.
type StageVariant struct {
	Token string
	Merge bool
	Cmds  []cdo.Command
	Err   error
}

func (v StageVariant) Tag() string { return v.Token }

func (v StageVariant) Ready(groups []chain.Group, totalExpected int) (bool, error) {
	if v.Merge {
		return chain.FireAll{}.Ready(groups, totalExpected)
	}
	return true, nil
}

func (v StageVariant) Commands(groups []chain.Group) ([]cdo.Command, error) {
	if v.Err != nil {
		return nil, v.Err
	}
	return v.Cmds, nil
}

// FixedNameVariant is a StageVariant whose result file carries a fixed,
// externally mandated name.
type FixedNameVariant struct {
	StageVariant
	Name string
}

func (v FixedNameVariant) FixedName(group chain.Group) (string, error) {
	return v.Name, nil
}

// StageModule registers a pre-built variant under a token, mirroring how
// the real stage packages register their factories.
type StageModule struct {
	Token   string
	Variant chain.Variant
}

// Register implements registry.Module.
func (m StageModule) Register(r *registry.Registry) {
	r.RegisterStage(m.Token, func(meta *chain.Metadata) (chain.Variant, error) {
		return m.Variant, nil
	})
}
