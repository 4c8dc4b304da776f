package main

import (
	"fmt"
	"log"
	"os"
)

// Default database file, overridable with -db on every subcommand.
const defaultDBFile = "breakup_data.db"

func usage() {
	fmt.Fprintf(os.Stderr, `usage: breakup-report <command> [flags]

Commands:
  migrate   apply or inspect database schema migrations
  import    load classified (or raw-band) observations from CSV
  detect    run breakup detection over a stored tile
  report    render an HTML summary for a completed run

Run "breakup-report <command> -h" for command flags.
`)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	case "detect":
		err = runDetect(os.Args[2:])
	case "report":
		err = runReport(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}
