// salesdesk-inspect is a diagnostic tool that connects to the analytical
// warehouse and prints every table's schema, row count, and a few sample
// rows. Useful for verifying connectivity and eyeballing the data the bot
// will be asked about.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/olekukonko/tablewriter"

	"github.com/fathomdata/salesdesk/internal/table"
	"github.com/fathomdata/salesdesk/internal/warehouse"
)

const sampleRows = 5

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "Enable verbose (debug) logging")
	addrFlag := flag.String("clickhouse-addr", "", "ClickHouse server address (or set CLICKHOUSE_ADDR env var)")
	databaseFlag := flag.String("clickhouse-database", "", "ClickHouse database name (or set CLICKHOUSE_DATABASE env var)")
	usernameFlag := flag.String("clickhouse-username", "", "ClickHouse username (or set CLICKHOUSE_USERNAME env var)")
	passwordFlag := flag.String("clickhouse-password", "", "ClickHouse password (or set CLICKHOUSE_PASSWORD env var)")
	flag.Parse()

	_ = godotenv.Load()

	logLevel := slog.LevelInfo
	if *verboseFlag {
		logLevel = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: logLevel}))

	addr := firstNonEmpty(*addrFlag, os.Getenv("CLICKHOUSE_ADDR"))
	database := firstNonEmpty(*databaseFlag, os.Getenv("CLICKHOUSE_DATABASE"))
	username := firstNonEmpty(*usernameFlag, os.Getenv("CLICKHOUSE_USERNAME"))
	password := firstNonEmpty(*passwordFlag, os.Getenv("CLICKHOUSE_PASSWORD"))

	if addr == "" {
		return fmt.Errorf("clickhouse address is required (flag -clickhouse-addr or CLICKHOUSE_ADDR)")
	}
	if database == "" {
		return fmt.Errorf("clickhouse database is required (flag -clickhouse-database or CLICKHOUSE_DATABASE)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := warehouse.NewClient(ctx, log, addr, database, username, password)
	if err != nil {
		return fmt.Errorf("failed to connect to clickhouse: %w", err)
	}
	defer client.Close()

	querier := warehouse.NewQuerier(client, log)

	tables, err := querier.Query(ctx, fmt.Sprintf("SELECT name FROM system.tables WHERE database = '%s' ORDER BY name", database))
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	if len(tables.Rows) == 0 {
		fmt.Printf("Database %q contains no tables.\n", database)
		return nil
	}

	fmt.Printf("Database %q: %d table(s)\n", database, len(tables.Rows))

	for _, row := range tables.Rows {
		name, ok := row[0].(string)
		if !ok {
			continue
		}
		if err := inspectTable(ctx, querier, database, name); err != nil {
			log.Error("failed to inspect table", "table", name, "error", err)
		}
	}
	return nil
}

func inspectTable(ctx context.Context, querier *warehouse.Querier, database, name string) error {
	fmt.Printf("\n=== %s ===\n", name)

	schema, err := querier.Query(ctx, fmt.Sprintf(
		"SELECT name, type FROM system.columns WHERE database = '%s' AND table = '%s' ORDER BY position",
		database, name))
	if err != nil {
		return fmt.Errorf("schema query failed: %w", err)
	}
	fmt.Println("Schema:")
	printTable(schema)

	count, err := querier.Query(ctx, fmt.Sprintf("SELECT count() FROM %s.%s", database, name))
	if err != nil {
		return fmt.Errorf("count query failed: %w", err)
	}
	if len(count.Rows) > 0 && len(count.Rows[0]) > 0 {
		fmt.Printf("Rows: %v\n", count.Rows[0][0])
	}

	sample, err := querier.Query(ctx, fmt.Sprintf("SELECT * FROM %s.%s LIMIT %d", database, name, sampleRows))
	if err != nil {
		return fmt.Errorf("sample query failed: %w", err)
	}
	if len(sample.Rows) > 0 {
		fmt.Printf("Sample (%d rows):\n", len(sample.Rows))
		printTable(sample)
	}
	return nil
}

func printTable(t table.Table) {
	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader(t.Columns)
	w.SetAutoWrapText(false)
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = table.FormatCell(v)
		}
		w.Append(cells)
	}
	w.Render()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
