package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"library-lending/internal/config"
	"library-lending/internal/logging"
	"library-lending/library"
)

func main() {
	cfg := config.NewConfig()

	dbPath := flag.String("db", cfg.Database.Path, "path to the SQLite database")
	csvPath := flag.String("file", "books.csv", "CSV file with title,page_count rows")
	flag.Parse()

	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	manager, err := library.NewLibraryManager(*dbPath, cfg.LoanPeriod(), library.WithLogger(log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer manager.Close()

	f, err := os.Open(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *csvPath, err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()
	fmt.Printf("Importing books from %s...\n", *csvPath)

	res, err := importBooks(ctx, manager, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *csvPath, err)
		os.Exit(1)
	}
	for _, line := range res.Failures {
		fmt.Println(line)
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", len(res.Imported))
	fmt.Printf("Errors: %d\n", len(res.Failures))

	if len(res.Imported) > 0 {
		fmt.Println("\nImported books:")
		fmt.Printf("%-5s %-30s %-6s %-10s %-25s\n", "ID", "Title", "Pages", "Available", "Borrower")
		fmt.Println(strings.Repeat("-", 80))
		for _, id := range res.Imported {
			b, err := manager.GetBook(ctx, id)
			if err != nil || b == nil {
				continue
			}
			fmt.Println(library.PrettyBook(b, ""))
		}
	}
}
