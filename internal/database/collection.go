//-------------------------------------------------------------------------
//
// Catena RAG Server
//
// Portions copyright (c) 2025 - 2026, The Catena Authors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/catenadev/catena-rag-server/internal/config"
)

// parseTableIdentifier splits a table name into schema and table parts.
// Supports formats: "table", "schema.table"
func parseTableIdentifier(table string) pgx.Identifier {
	parts := strings.Split(table, ".")
	return pgx.Identifier(parts)
}

// Passage is a single retrieved passage with its similarity score.
type Passage struct {
	Text       string
	SourceName string
	SourcePath string
	Score      float64
	Metadata   map[string]interface{}
}

// Collection provides read access to one indexed document collection.
type Collection struct {
	pool *Pool
	cfg  config.CollectionConfig
}

// NewCollection creates a Collection over the given pool.
func NewCollection(pool *Pool, cfg config.CollectionConfig) *Collection {
	return &Collection{
		pool: pool,
		cfg:  cfg,
	}
}

// CountPassages returns the number of rows in the collection table.
func (c *Collection) CountPassages(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("SELECT count(*) FROM %s",
		parseTableIdentifier(c.cfg.Table).Sanitize())

	var count int64
	if err := c.pool.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count passages: %w", err)
	}

	return count, nil
}

// VectorSearch performs a vector similarity search using pgvector.
// Returns passages ordered by similarity (highest first). The name, path
// and metadata columns are optional; unset columns leave the corresponding
// Passage fields zero.
func (c *Collection) VectorSearch(
	ctx context.Context,
	embedding []float32,
	limit int,
) ([]Passage, error) {
	vectorCol := pgx.Identifier{c.cfg.VectorColumn}.Sanitize()

	// Build the select list. Column order here must stay aligned with the
	// scan destinations below.
	columns := []string{
		fmt.Sprintf("%s AS content", pgx.Identifier{c.cfg.TextColumn}.Sanitize()),
		// The <=> operator returns cosine distance, so we subtract from 1
		// for similarity.
		fmt.Sprintf("1 - (%s <=> $1) AS score", vectorCol),
	}

	hasName := c.cfg.NameColumn != ""
	if hasName {
		columns = append(columns,
			fmt.Sprintf("COALESCE(%s, '')", pgx.Identifier{c.cfg.NameColumn}.Sanitize()))
	}

	hasPath := c.cfg.PathColumn != ""
	if hasPath {
		columns = append(columns,
			fmt.Sprintf("COALESCE(%s, '')", pgx.Identifier{c.cfg.PathColumn}.Sanitize()))
	}

	hasMetadata := c.cfg.MetadataColumn != ""
	if hasMetadata {
		columns = append(columns, pgx.Identifier{c.cfg.MetadataColumn}.Sanitize())
	}

	query := fmt.Sprintf(`
		SELECT
			%s
		FROM %s
		ORDER BY %s <=> $1
		LIMIT $2`,
		strings.Join(columns, ",\n\t\t\t"),
		parseTableIdentifier(c.cfg.Table).Sanitize(),
		vectorCol,
	)

	rows, err := c.pool.pool.Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var passages []Passage
	for rows.Next() {
		var p Passage
		dests := []interface{}{&p.Text, &p.Score}
		if hasName {
			dests = append(dests, &p.SourceName)
		}
		if hasPath {
			dests = append(dests, &p.SourcePath)
		}
		if hasMetadata {
			dests = append(dests, &p.Metadata)
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		passages = append(passages, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return passages, nil
}
