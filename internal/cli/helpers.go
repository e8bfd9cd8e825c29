// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line interface functionality.
// This file contains shared helper functions used across multiple CLI commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
)

// formatDurationShort formats a short duration string.
func formatDurationShort(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}

// maskAPIKey shows only a fingerprint of a secret.
func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return provider.KeyFingerprint(key)
}

// readStdin returns piped stdin, or "" when stdin is a terminal.
func readStdin() (string, error) {
	if IsTTY() {
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// streamTo drains s, writing each fragment to live as it arrives when live
// is non-nil. It returns everything received, including the partial text
// before an error.
func streamTo(s *provider.Stream, live io.Writer) (string, error) {
	var full strings.Builder
	err := provider.Each(s, func(frag string) error {
		full.WriteString(frag)
		if live != nil {
			_, err := io.WriteString(live, frag)
			return err
		}
		return nil
	})
	return full.String(), err
}

// isCancellation reports whether err came from the user interrupting.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
