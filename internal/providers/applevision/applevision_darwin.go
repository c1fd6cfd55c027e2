//go:build darwin

package applevision

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/alexberardi/jarvis-ocr-service/internal/providers"
)

// Available reports whether the helper binary can be found on this host.
func (d *Driver) Available(ctx context.Context) bool {
	_, err := exec.LookPath(d.helperPath)
	return err == nil
}

// Extract pipes the image through the helper and reads recognized text from
// stdout. The helper prints text only; the language hint is passed as a
// flag.
func (d *Driver) Extract(ctx context.Context, image []byte, language string) (providers.Candidate, error) {
	cmd := exec.CommandContext(ctx, d.helperPath, "--language", language)
	cmd.Stdin = bytes.NewReader(image)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return providers.Candidate{}, fmt.Errorf("apple_vision helper: %w: %s", err, stderr.String())
	}
	return providers.Candidate{Text: stdout.String()}, nil
}
