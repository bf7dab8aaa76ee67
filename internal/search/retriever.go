// Package search provides retrieval over the regulation corpus: a Retriever
// abstraction backed by the pgvector similarity search, context assembly for
// prompt injection, and citation formatting helpers.
package search

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-rag-backend/internal/repo"
)

// Result is one retrieved passage with its provenance and similarity score.
type Result struct {
	Content    string
	Regulation string
	Section    string
	Title      string
	Score      float64
}

// Retriever finds the passages most similar to a query embedding.
// Implementations must honor the provided context.
type Retriever interface {
	// Match returns up to limit passages with similarity >= threshold,
	// ranked best-first.
	Match(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Result, error)
}

// PGRetriever is the production Retriever over the document_chunks table.
type PGRetriever struct {
	DB *gorm.DB
}

// Match implements Retriever via repo.MatchChunks.
func (r *PGRetriever) Match(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Result, error) {
	rows, err := repo.MatchChunks(ctx, r.DB, embedding, threshold, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(rows))
	for _, row := range rows {
		out = append(out, Result{
			Content:    row.Content,
			Regulation: row.Regulation,
			Section:    row.Section,
			Title:      row.Title,
			Score:      row.Similarity,
		})
	}
	return out, nil
}
