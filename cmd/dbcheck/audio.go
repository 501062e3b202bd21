package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/snarg/clinic-engine/internal/storage"
)

// checkAudio reports transcriptions whose recording is missing from the
// configured store.
func checkAudio(ctx context.Context, pool *pgxpool.Pool, store storage.AudioStore) {
	rows, err := pool.Query(ctx, `SELECT appointment_id, audio_path FROM transcriptions ORDER BY appointment_id`)
	if err != nil {
		fmt.Printf("Error listing transcriptions: %v\n", err)
		return
	}
	defer rows.Close()

	var checked, missing int
	for rows.Next() {
		var id int64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			fmt.Printf("Error scanning row: %v\n", err)
			return
		}
		checked++
		if key == "" || !store.Exists(ctx, key) {
			missing++
			fmt.Printf("  appointment_id=%d audio_path=%q missing\n", id, key)
		}
	}
	fmt.Printf("Checked %d transcriptions in %s storage, %d missing audio\n", checked, store.Type(), missing)
}

// fixOrphans finds appointment recordings in the local audio directory that
// no transcription references, and deletes them when dryRun is false.
func fixOrphans(ctx context.Context, pool *pgxpool.Pool, audioDir string, store storage.AudioStore, dryRun bool) {
	entries, err := os.ReadDir(audioDir)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", audioDir, err)
		return
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}

	referenced := make(map[string]bool)
	rows, err := pool.Query(ctx, `SELECT audio_path FROM transcriptions`)
	if err != nil {
		fmt.Printf("Error listing transcriptions: %v\n", err)
		return
	}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err == nil {
			referenced[key] = true
		}
	}
	rows.Close()

	orphans := unreferenced(files, referenced)
	fmt.Printf("Found %d orphaned recordings in %s\n", len(orphans), audioDir)
	if len(orphans) == 0 {
		return
	}

	if dryRun {
		fmt.Println("Dry run, no changes made. Run with 'orphans apply' to delete.")
		for i, key := range orphans {
			if i >= 10 {
				fmt.Printf("  ... and %d more\n", len(orphans)-10)
				break
			}
			fmt.Printf("  %s\n", filepath.Join(audioDir, key))
		}
		return
	}

	var deleted int
	for _, key := range orphans {
		if err := store.Delete(ctx, key); err != nil {
			fmt.Printf("  delete %s: %v\n", key, err)
			continue
		}
		deleted++
	}
	fmt.Printf("Deleted %d of %d orphaned recordings\n", deleted, len(orphans))
}

// unreferenced returns the appointment recordings in files that are not in
// referenced, sorted. Files not named like appointment recordings are ignored.
func unreferenced(files []string, referenced map[string]bool) []string {
	var out []string
	for _, f := range files {
		if !strings.HasPrefix(f, "appointment-") {
			continue
		}
		if !referenced[f] {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
