package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/snarg/clinic-engine/internal/config"
	"github.com/snarg/clinic-engine/internal/storage"
)

func main() {
	cfg, err := config.Load(config.Overrides{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	dryRun := !(len(os.Args) > 2 && os.Args[2] == "apply")

	switch cmd {
	case "audio":
		checkAudio(ctx, pool, openStore(cfg))
	case "orphans":
		fixOrphans(ctx, pool, cfg.AudioDir, openStore(cfg), dryRun)
	case "":
		printCounts(ctx, pool)
	default:
		fmt.Fprintf(os.Stderr, "usage: dbcheck [audio | orphans [apply]]\n")
		os.Exit(2)
	}
}

func openStore(cfg *config.Config) storage.AudioStore {
	store, err := storage.New(cfg.S3, cfg.AudioDir, zerolog.New(os.Stderr).Level(zerolog.WarnLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "storage: %v\n", err)
		os.Exit(1)
	}
	return store
}

func printCounts(ctx context.Context, pool *pgxpool.Pool) {
	tables := []string{"doctors", "patients", "appointments", "transcriptions"}
	fmt.Println("Table                    Count")
	fmt.Println("─────────────────────────────────")
	for _, t := range tables {
		var count int64
		pool.QueryRow(ctx, "SELECT count(*) FROM "+t).Scan(&count)
		fmt.Printf("%-25s %d\n", t, count)
	}

	fmt.Println()
	fmt.Println("── Appointments by status ──")
	rows, err := pool.Query(ctx, `SELECT status, count(*) FROM appointments GROUP BY status ORDER BY status`)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		rows.Scan(&status, &n)
		fmt.Printf("  %-12s %d\n", status, n)
	}

	var completedWithout int64
	pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments a
		WHERE a.status = 'completed'
		  AND NOT EXISTS (SELECT 1 FROM transcriptions t WHERE t.appointment_id = a.id)
	`).Scan(&completedWithout)
	fmt.Printf("\nCompleted appointments without a transcription: %d\n", completedWithout)
}
