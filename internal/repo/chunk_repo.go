// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides vector similarity search over the
// document_chunks table and small aggregate queries for the regulations
// summary endpoint.
//
// The search mirrors the hosted match_documents(query_embedding,
// match_threshold, match_count) procedure: cosine similarity is
// 1 - (embedding <=> query), rows below the threshold are discarded, and
// results come back ranked best-first. Queries are parameterized throughout;
// the embedding travels as a pgvector value, never as interpolated SQL.
package repo

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// ChunkMatch is one ranked similarity-search result.
type ChunkMatch struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Regulation string  `json:"regulation"`
	Section    string  `json:"section"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// RegulationCount is the number of stored chunks for one regulation.
type RegulationCount struct {
	Regulation string `json:"regulation"`
	Count      int64  `json:"count"`
}

// MatchChunks returns up to matchCount chunks whose cosine similarity to the
// query embedding is at least threshold, ranked most similar first.
// The search carries its own timeout so a slow vector scan cannot hold a
// request open indefinitely.
func MatchChunks(ctx context.Context, db *gorm.DB, embedding []float32, threshold float64, matchCount int) ([]ChunkMatch, error) {
	qctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	vec := pgvector.NewVector(embedding)
	var out []ChunkMatch
	err := db.WithContext(qctx).Raw(
		`SELECT id, content, regulation, section, title,
		        1 - (embedding <=> ?) AS similarity
		 FROM document_chunks
		 WHERE 1 - (embedding <=> ?) >= ?
		 ORDER BY embedding <=> ?
		 LIMIT ?`, vec, vec, threshold, vec, matchCount,
	).Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountByRegulation returns chunk counts grouped by regulation, largest
// first. A limit <= 0 returns all regulations.
func CountByRegulation(ctx context.Context, db *gorm.DB, limit int) ([]RegulationCount, error) {
	q := db.WithContext(ctx).Raw(
		`SELECT regulation, COUNT(*) AS count
		 FROM document_chunks
		 GROUP BY regulation
		 ORDER BY count DESC, regulation ASC`)
	var out []RegulationCount
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
