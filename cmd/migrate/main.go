package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

// Applies every .sql file in the migrations directory, in name order, each
// in its own transaction. Files are idempotent (CREATE TABLE IF NOT EXISTS)
// so re-running after a partial failure is safe.
//
// Usage:
//
//	migrate [dir]      apply migrations from dir (default "migrations")
//	migrate --list     list the cvo_* tables currently in the database
func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	dir := "migrations"
	for _, arg := range os.Args[1:] {
		if arg == "--list" {
			listTables(db)
			return
		}
		dir = arg
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("Failed to read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Fatalf("No .sql files in %s", dir)
	}

	okCount, errCount := 0, 0
	for _, name := range files {
		path := filepath.Join(dir, name)
		content, err := os.ReadFile(path)
		if err != nil {
			log.Printf("SKIP %s: %v", name, err)
			errCount++
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			log.Fatalf("Failed to begin transaction: %v", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			log.Printf("FAIL %s: %v", name, err)
			errCount++
			continue
		}
		if err := tx.Commit(); err != nil {
			log.Printf("FAIL %s: commit: %v", name, err)
			errCount++
			continue
		}
		log.Printf("OK   %s", name)
		okCount++
	}

	log.Printf("Done: %d applied, %d failed", okCount, errCount)
	if errCount > 0 {
		os.Exit(1)
	}
}

func listTables(db *sql.DB) {
	rows, err := db.Query(`
		SELECT table_name,
		       pg_size_pretty(pg_total_relation_size(quote_ident(table_name)))
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name LIKE 'cvo_%'
		ORDER BY table_name`)
	if err != nil {
		log.Fatalf("Failed to list tables: %v", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var name, size string
		if err := rows.Scan(&name, &size); err != nil {
			log.Fatalf("Failed to scan row: %v", err)
		}
		fmt.Printf("%-30s %s\n", name, size)
		found = true
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Failed reading tables: %v", err)
	}
	if !found {
		fmt.Println("No cvo_* tables found. Run migrations first.")
	}
}
