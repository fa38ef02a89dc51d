package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"desktop-thumbnailer/internal/logging"
)

// Runner executes an expanded thumbnailer command line and waits for it.
type Runner interface {
	Run(ctx context.Context, commandLine string) error
}

// ShellRunner runs command lines with /bin/sh -c. Output is discarded;
// stderr is kept for debug logging on failure.
type ShellRunner struct {
	// Shell defaults to /bin/sh.
	Shell string
}

// Run implements Runner. A non-zero exit status is returned as an error.
func (r ShellRunner) Run(ctx context.Context, commandLine string) error {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", commandLine)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	logging.Debug("Running thumbnailer: %s", commandLine)
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			logging.Debug("Thumbnailer stderr: %s", msg)
		}
		return fmt.Errorf("thumbnailer command failed: %w", err)
	}
	return nil
}
