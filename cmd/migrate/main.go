// Command migrate prepares the Postgres schema.
//
// GORM's AutoMigrate (run by the server at boot) owns the plain relational
// tables. This command owns everything AutoMigrate cannot express: the
// pgvector extension, the document_chunks table with its vector column, and
// the similarity indexes. It is idempotent; rerunning it is safe.
package main

import (
	"flag"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-rag-backend/internal/config"
	"github.com/tbourn/go-rag-backend/internal/repo"
	"github.com/tbourn/go-rag-backend/internal/sysutil"
)

func main() {
	dropIndexes := flag.Bool("reindex", false, "drop and rebuild the vector index")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.SetLogLevel(cfg.LogLevel)

	db, err := repo.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("relational migration failed")
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
			content    text NOT NULL,
			regulation text NOT NULL,
			section    text NOT NULL DEFAULT '',
			title      text NOT NULL DEFAULT '',
			embedding  vector(%d) NOT NULL,
			created_at timestamptz NOT NULL DEFAULT now()
		)`, cfg.LLM.EmbeddingDim),

		`CREATE INDEX IF NOT EXISTS idx_document_chunks_regulation
			ON document_chunks (regulation)`,

		// HNSW over cosine distance, matching the <=> operator used at query time.
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding
			ON document_chunks USING hnsw (embedding vector_cosine_ops)`,

		`CREATE INDEX IF NOT EXISTS idx_user_usage_date ON user_usage (date)`,

		`CREATE INDEX IF NOT EXISTS idx_contact_submissions_created_at
			ON contact_submissions (created_at)`,
	}

	if *dropIndexes {
		stmts = append([]string{`DROP INDEX IF EXISTS idx_document_chunks_embedding`}, stmts...)
	}

	for _, s := range stmts {
		if err := db.Exec(s).Error; err != nil {
			log.Fatal().Err(err).Str("stmt", s).Msg("migration statement failed")
		}
	}

	log.Info().Int("statements", len(stmts)).Msg("schema ready")
}
