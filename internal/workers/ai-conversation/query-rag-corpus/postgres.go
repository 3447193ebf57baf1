// internal/workers/ai-conversation/query-rag-corpus/postgres.go
package queryragcorpus

import (
	"context"
	"database/sql"

	"rag-answer-service/internal/common/config"
	apperrors "rag-answer-service/internal/common/errors"
)

const searchChunksQuery = `SELECT content, title, source_uri, ts_rank(search_vector, plainto_tsquery('english', $1)) AS rank
FROM rag_chunks
WHERE corpus_id = $2 AND search_vector @@ plainto_tsquery('english', $1)
ORDER BY rank DESC
LIMIT $3`

// PostgresRetriever ranks rag_chunks rows with full text search. Ranks are
// divided by the best rank of the result set.
type PostgresRetriever struct {
	db   *sql.DB
	topK int
}

func NewPostgresRetriever(db *sql.DB, topK int) *PostgresRetriever {
	return &PostgresRetriever{db: db, topK: topK}
}

func (r *PostgresRetriever) Name() string { return BackendPostgres }

type chunkRow struct {
	content   string
	title     sql.NullString
	sourceURI sql.NullString
	rank      float64
}

func (r *PostgresRetriever) Retrieve(ctx context.Context, d config.Deployment, queryText string) (map[string]interface{}, error) {
	rows, err := r.db.QueryContext(ctx, searchChunksQuery, queryText, d.CorpusID, r.topK)
	if err != nil {
		return nil, apperrors.NewRetrievalFailedError(BackendPostgres, err)
	}
	defer rows.Close()

	var found []chunkRow
	var best float64
	for rows.Next() {
		var row chunkRow
		if err := rows.Scan(&row.content, &row.title, &row.sourceURI, &row.rank); err != nil {
			return nil, apperrors.NewRetrievalFailedError(BackendPostgres, err)
		}
		if row.rank > best {
			best = row.rank
		}
		found = append(found, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewRetrievalFailedError(BackendPostgres, err)
	}

	contexts := make([]interface{}, 0, len(found))
	for _, row := range found {
		score := row.rank
		if best > 0 {
			score = row.rank / best
		}
		contexts = append(contexts, map[string]interface{}{
			"text":      row.content,
			"title":     row.title.String,
			"sourceUri": row.sourceURI.String,
			"score":     score,
		})
	}
	return map[string]interface{}{"contexts": contexts}, nil
}
