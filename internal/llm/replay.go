// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
	"github.com/ritvikindupuri/GlyphBreaker/internal/util"
)

// replay streams cached text in fixed-size rune chunks so a cache hit
// renders like a live response. Concatenating the chunks yields text
// exactly; the empty string yields no fragments.
func (s *Service) replay(ctx context.Context, text string) *provider.Stream {
	chunks := util.ChunkRunes(text, s.chunkSize)

	limit := rate.Inf
	if s.replayDelay > 0 {
		limit = rate.Every(s.replayDelay)
	}
	// Burst 1: the first chunk is immediate, then one per delay.
	limiter := rate.NewLimiter(limit, 1)

	return provider.NewStream(ctx, func(ctx context.Context, emit provider.EmitFunc) error {
		for _, chunk := range chunks {
			if err := limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return err
			}
			if err := emit(chunk); err != nil {
				return err
			}
		}
		return nil
	})
}
