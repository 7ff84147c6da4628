package cdo

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/vk/cmorize/internal/ctxlog"
)

// run invokes an external binary, capturing stderr into the returned error.
// Sub-command failures are fatal for the owning chain and are not retried.
// It is a variable so tests can capture the argv without spawning a process.
var run = func(ctx context.Context, name string, args ...string) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Running external command.", "command", name, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
