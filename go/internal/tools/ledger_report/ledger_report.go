package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/roundsync/go/internal/dbconfig"
	"github.com/mcdev12/roundsync/go/internal/ledger"
	"github.com/mcdev12/roundsync/go/internal/models"
)

// Prints every payoff ledger kept in the shared kv_entries table, optionally limited to
// one room: go run ./go/internal/tools/ledger_report [room_id]
func main() {
	ctx := context.Background()

	prefix := ledger.KeyPrefix
	if len(os.Args) > 1 {
		prefix += os.Args[1] + "_"
	}

	// 1) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 2) Load ledgers
	rows, err := pool.Query(ctx, `
            SELECT key, value
            FROM kv_entries
            WHERE key LIKE $1
            ORDER BY key
        `, strings.ReplaceAll(prefix, "_", `\_`)+"%")
	if err != nil {
		fmt.Fprintf(os.Stderr, "query error: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	type entry struct {
		key     string
		records []models.PayoffRecord
	}
	var (
		entries []entry
		errs    int
	)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			fmt.Fprintf(os.Stderr, "scan error: %v\n", err)
			errs++
			continue
		}
		var records []models.PayoffRecord
		if err := json.Unmarshal(value, &records); err != nil {
			fmt.Fprintf(os.Stderr, "unmarshal %s: %v\n", key, err)
			errs++
			continue
		}
		entries = append(entries, entry{key: key, records: records})
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "rows error: %v\n", err)
		os.Exit(1)
	}

	// 3) Print per ledger
	for _, e := range entries {
		sort.Slice(e.records, func(i, j int) bool {
			return e.records[i].RoundNumber < e.records[j].RoundNumber
		})
		fmt.Printf("%s\n", strings.TrimPrefix(e.key, ledger.KeyPrefix))
		for _, r := range e.records {
			fmt.Printf("  round %2d  payoff %4d  at %s\n", r.RoundNumber, r.Payoff, r.RecordedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("  total %d\n", ledger.Sum(e.records))
	}

	fmt.Printf("Ledger report complete: %d ledgers, %d errors\n", len(entries), errs)
}
