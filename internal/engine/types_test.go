//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package engine

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStreamEvent_MarshalSources(t *testing.T) {
	tests := []struct {
		name    string
		event   StreamEvent
		want    string
		exclude string
	}{
		{
			name: "sources with citations",
			event: StreamEvent{Type: EventSources, Sources: []SourceCitation{
				{FileName: "alpha.md", Score: 0.92},
			}},
			want: `"sources_with_scores":[{`,
		},
		{
			name:  "empty sources keep the key",
			event: StreamEvent{Type: EventSources, Sources: []SourceCitation{}},
			want:  `"sources_with_scores":[]`,
		},
		{
			name:  "nil sources keep the key",
			event: StreamEvent{Type: EventSources},
			want:  `"sources_with_scores":[]`,
		},
		{
			name:    "chunk omits the key",
			event:   StreamEvent{Type: EventChunk, Content: "Hello"},
			want:    `"content":"Hello"`,
			exclude: "sources_with_scores",
		},
		{
			name:    "done omits the key",
			event:   StreamEvent{Type: EventDone},
			want:    `{"type":"done"}`,
			exclude: "sources_with_scores",
		},
		{
			name:    "error omits the key",
			event:   StreamEvent{Type: EventError, Content: GenericErrorMessage},
			want:    `"type":"error"`,
			exclude: "sources_with_scores",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("failed to marshal event: %v", err)
			}

			got := string(data)
			if !strings.Contains(got, tt.want) {
				t.Errorf("marshaled event %s, want it to contain %s", got, tt.want)
			}
			if tt.exclude != "" && strings.Contains(got, tt.exclude) {
				t.Errorf("marshaled event %s, want no %s key", got, tt.exclude)
			}
		})
	}
}
