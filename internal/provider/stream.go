// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"io"
	"strings"
	"sync"
)

// =============================================================================
// STREAM
// =============================================================================

// EmitFunc hands one fragment to the consumer. It blocks until the consumer
// takes the fragment and returns an error once the stream is cancelled.
type EmitFunc func(fragment string) error

// Producer generates fragments until the source is exhausted. Returning nil
// ends the stream cleanly; any other error terminates it with that error.
type Producer func(ctx context.Context, emit EmitFunc) error

// Stream is a lazy, finite, forward-only sequence of text fragments.
//
// A Stream has a single consumer. Fragments are delivered in production order
// with at most one fragment in flight; the producer cannot run ahead of the
// consumer. Next returns io.EOF after a clean end and the terminal error
// otherwise. Close cancels the producer and releases its resources.
type Stream struct {
	frags  chan string
	cancel context.CancelFunc
	err    error

	closeOnce sync.Once
}

// NewStream starts produce in its own goroutine and returns the consuming end.
// The producer's context is derived from ctx and is cancelled by Close.
func NewStream(ctx context.Context, produce Producer) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		frags:  make(chan string),
		cancel: cancel,
	}

	go func() {
		defer close(s.frags)
		defer cancel()
		// s.err is written before close(s.frags); Next reads it only after
		// observing the close, so the channel orders the two.
		s.err = produce(ctx, func(fragment string) error {
			select {
			case s.frags <- fragment:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	return s
}

// FromStrings returns a stream that yields the given fragments then ends.
func FromStrings(ctx context.Context, fragments ...string) *Stream {
	return NewStream(ctx, func(ctx context.Context, emit EmitFunc) error {
		for _, f := range fragments {
			if err := emit(f); err != nil {
				return err
			}
		}
		return nil
	})
}

// Next returns the next fragment. It returns io.EOF when the stream ended
// cleanly and the producer's error when it failed.
func (s *Stream) Next() (string, error) {
	frag, ok := <-s.frags
	if ok {
		return frag, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

// Close stops the producer and waits for it to exit. It is safe to call
// more than once and after the stream ended.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		for range s.frags {
		}
	})
	return nil
}

// Collect drains the stream and returns the concatenated text. On failure it
// returns the text received so far together with the error.
func Collect(s *Stream) (string, error) {
	defer s.Close()

	var sb strings.Builder
	for {
		frag, err := s.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(frag)
	}
}

// Each calls fn for every fragment until the stream ends. The first error
// from fn or from the stream is returned; a clean end returns nil.
func Each(s *Stream, fn func(fragment string) error) error {
	defer s.Close()

	for {
		frag, err := s.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(frag); err != nil {
			return err
		}
	}
}
