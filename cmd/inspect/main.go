// inspect prints the footer summary of recorder Parquet files and
// optionally dumps rows as JSON lines.
// Usage: go run ./cmd/inspect [-rows N] [-json] file.parquet...
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rickgao/market-recorder/internal/inspect"
)

func main() {
	rows := flag.Int("rows", 0, "dump up to N rows per file (-1 for all)")
	asJSON := flag.Bool("json", false, "print summaries as JSON")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file.parquet...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := false
	for i, path := range flag.Args() {
		s, err := inspect.Summarize(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
			continue
		}

		if *asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(s)
		} else {
			if i > 0 {
				fmt.Println()
			}
			s.Print(os.Stdout)
		}

		if *rows != 0 {
			limit := *rows
			if limit < 0 {
				limit = 0
			}
			if _, err := inspect.Dump(path, limit, os.Stdout); err != nil {
				fmt.Fprintln(os.Stderr, err)
				failed = true
			}
		}
	}

	if failed {
		os.Exit(1)
	}
}
