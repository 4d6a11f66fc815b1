package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/postgres"
)

// PostgresSource loads documents with a query returning (id, name, body)
// rows, e.g.
//
//	SELECT id, name, body FROM documents ORDER BY id
type PostgresSource struct {
	db    *postgres.Client
	query string
}

func NewPostgresSource(db *postgres.Client, query string) *PostgresSource {
	return &PostgresSource{db: db, query: query}
}

func (s *PostgresSource) Load(ctx context.Context) ([]Document, error) {
	rows, err := s.db.DB.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Name, &d.Text); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	slog.Default().With("component", "corpus-postgres").Info("corpus loaded", "documents", len(docs))
	return docs, nil
}
