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
	"math"
	"path/filepath"
	"sort"

	"github.com/catenadev/catena-rag-server/internal/database"
)

// sourceFileName derives the display name for a passage: the indexed source
// name, falling back to the base of the source path.
func sourceFileName(p database.Passage) string {
	if p.SourceName != "" {
		return p.SourceName
	}
	if p.SourcePath != "" {
		return filepath.Base(p.SourcePath)
	}
	return ""
}

// roundScore rounds a relevance score to 4 decimal places for display
// stability.
func roundScore(score float64) float64 {
	return math.Round(score*1e4) / 1e4
}

// metadataString reads an optional string field from passage metadata.
func metadataString(metadata map[string]interface{}, key string) string {
	if v, ok := metadata[key].(string); ok {
		return v
	}
	return ""
}

// ResolveSources converts the first topN passages, in retrieval order, into
// source citations: passages with no derivable file name are dropped,
// duplicate file names keep the first (highest-relevance) occurrence, scores
// are rounded to 4 decimals and the result is sorted by score descending.
// The sort is stable so equal scores keep their retrieval order.
func ResolveSources(passages []database.Passage, topN int) []SourceCitation {
	if topN > 0 && len(passages) > topN {
		passages = passages[:topN]
	}

	seen := make(map[string]bool, len(passages))
	citations := make([]SourceCitation, 0, len(passages))

	for _, p := range passages {
		name := sourceFileName(p)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		citations = append(citations, SourceCitation{
			FileName:     name,
			FilePath:     p.SourcePath,
			RelativePath: metadataString(p.Metadata, "relative_path"),
			SourceFolder: metadataString(p.Metadata, "source_folder"),
			Score:        roundScore(p.Score),
		})
	}

	sort.SliceStable(citations, func(i, j int) bool {
		return citations[i].Score > citations[j].Score
	})

	return citations
}
