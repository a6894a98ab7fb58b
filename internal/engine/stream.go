//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package engine

import "context"

// Stream is the ordered event sequence for one question. Events are produced
// by the engine goroutine and handed over one at a time; the channel is
// unbuffered so the consumer paces the producer.
type Stream struct {
	events chan StreamEvent
	cancel context.CancelFunc
}

// Next returns the next event. ok is false once the stream is exhausted or
// ctx is done; no event follows a done or error event.
func (s *Stream) Next(ctx context.Context) (StreamEvent, bool) {
	select {
	case ev, ok := <-s.events:
		return ev, ok
	case <-ctx.Done():
		return StreamEvent{}, false
	}
}

// Close abandons the stream and cancels the work feeding it. Fragments the
// consumer already received stand; nothing further is produced. Safe to
// call more than once.
func (s *Stream) Close() {
	s.cancel()
}
