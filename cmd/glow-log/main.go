// Command glow-log is a tool for viewing and analyzing glow capture files.
//
// Capture files are written by the engine's capture logger, for example
// when running glow-sim with the -capture flag. Files ending in .zst are
// zstd-compressed; every command reads both forms.
//
// Usage:
//
//	glow-log <command> [flags] <file.glog>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSON or CSV format
//	filter   Filter capture file and write to new file
//	stats    Show statistics about the capture file
//
// Examples:
//
//	# View all events
//	glow-log view session.glog
//
//	# View only flag rewrites
//	glow-log view --category rewrite session.glog.zst
//
//	# Follow one entity
//	glow-log view --entity 42 session.glog
//
//	# Export to JSONL
//	glow-log export --format jsonl session.glog
//
//	# Keep one observer's events in a new file
//	glow-log filter --observer 3f2a9c1e-... -o steve.glog session.glog
//
//	# Show statistics
//	glow-log stats session.glog
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/glowkit/glow-go/cmd/glow-log/commands"
)

const usage = `glow-log - Glow Capture Analyzer

Usage:
  glow-log <command> [flags] <file.glog>

Commands:
  view     View capture file in human-readable format
  export   Export capture file to JSON or CSV format
  filter   Filter capture file and write to new file
  stats    Show statistics about the capture file

Use "glow-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// requirePath returns the single positional argument or exits.
func requirePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: capture file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `glow-log view - View capture file in human-readable format

Usage:
  glow-log view [flags] <file.glog>

Flags:
`)
		fs.PrintDefaults()
	}

	observer := fs.String("observer", "", "Filter by observer ID")
	entity := fs.String("entity", "", "Filter rewrites by entity ID")
	layer := fs.String("layer", "", "Filter by layer (transport, intercept, engine)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (packet, rewrite, team, state, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	filter := commands.ViewFilter{Observer: *observer}

	if *entity != "" {
		id, err := strconv.ParseInt(*entity, 10, 32)
		if err != nil {
			fail(fmt.Errorf("invalid entity id: %w", err))
		}
		e := int32(id)
		filter.EntityID = &e
	}

	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			fail(err)
		}
		filter.Layer = &l
	}

	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			fail(err)
		}
		filter.Direction = &d
	}

	if *category != "" {
		c, err := commands.ParseCategoryFlag(*category)
		if err != nil {
			fail(err)
		}
		filter.Category = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `glow-log export - Export capture file to JSON or CSV format

Usage:
  glow-log export [flags] <file.glog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `glow-log filter - Filter capture file and write to new file

Usage:
  glow-log filter [flags] <file.glog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required; .zst compresses)")
	observer := fs.String("observer", "", "Filter by observer ID")
	entity := fs.String("entity", "", "Filter rewrites by entity ID")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")
	layer := fs.String("layer", "", "Filter by layer (transport, intercept, engine)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (packet, rewrite, team, state, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	opts := commands.FilterOptions{
		Output:    *output,
		Observer:  *observer,
		Entity:    *entity,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
		Layer:     *layer,
		Direction: *direction,
		Category:  *category,
	}

	if err := commands.RunFilter(path, opts, os.Stdout); err != nil {
		fail(err)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `glow-log stats - Show statistics about the capture file

Usage:
  glow-log stats <file.glog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
