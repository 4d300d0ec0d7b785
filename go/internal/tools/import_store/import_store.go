package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/roundsync/go/internal/dbconfig"
)

// Copies a local file store into the shared kv_entries table without overwriting keys that
// already exist there: go run ./go/internal/tools/import_store [path]
func main() {
	ctx := context.Background()

	path := ".roundsync/store.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the file store document
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read store: %v\n", err)
		os.Exit(1)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal store: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert and count
	var (
		total    = len(entries)
		inserted int
		skipped  int
		errs     int
	)

	for key, value := range entries {
		cmdTag, err := pool.Exec(ctx, `
            INSERT INTO kv_entries (key, value)
            VALUES ($1, $2)
            ON CONFLICT (key) DO NOTHING
        `, key, []byte(value))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting %s: %v\n", key, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Store import complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
