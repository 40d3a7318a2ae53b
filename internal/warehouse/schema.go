package warehouse

import (
	"context"
	"fmt"
	"strings"
)

// SchemaFetcher describes the warehouse tables for the agent prompt.
type SchemaFetcher struct {
	db       Client
	database string
}

// NewSchemaFetcher creates a SchemaFetcher for the given database.
func NewSchemaFetcher(db Client, database string) *SchemaFetcher {
	return &SchemaFetcher{db: db, database: database}
}

// FetchSchema returns a formatted listing of every table and its columns.
func (s *SchemaFetcher) FetchSchema(ctx context.Context) (string, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return "", fmt.Errorf("connection error: %w", err)
	}
	defer conn.Close()

	rows, err := conn.Query(ctx,
		`SELECT table, name, type FROM system.columns WHERE database = ? ORDER BY table, position`,
		s.database,
	)
	if err != nil {
		return "", fmt.Errorf("failed to query schema: %w", err)
	}
	defer rows.Close()

	var sb strings.Builder
	currentTable := ""
	for rows.Next() {
		var tableName, colName, colType string
		if err := rows.Scan(&tableName, &colName, &colType); err != nil {
			return "", fmt.Errorf("failed to scan schema row: %w", err)
		}
		if tableName != currentTable {
			if currentTable != "" {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("Table %s:\n", tableName))
			currentTable = tableName
		}
		sb.WriteString(fmt.Sprintf("  - %s (%s)\n", colName, colType))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating schema rows: %w", err)
	}

	if currentTable == "" {
		return "", fmt.Errorf("no tables found in database %s", s.database)
	}
	return sb.String(), nil
}
