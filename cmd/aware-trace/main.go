// Command aware-trace views and analyzes Aware control-plane captures.
//
// Capture files are written by aware-device with the -capture flag and hold
// length-prefixed CBOR events.
//
// Usage:
//
//	aware-trace <command> [flags] <file.trace>
//
// Commands:
//
//	view     View a capture in human-readable format
//	export   Export a capture to JSONL
//	stats    Show statistics about a capture
//
// Examples:
//
//	# View all events
//	aware-trace view device.trace
//
//	# View only failed commands
//	aware-trace view -category response -failures device.trace
//
//	# Export to JSONL
//	aware-trace export -o device.jsonl device.trace
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/aware-protocol/aware-go/pkg/log"
)

const usage = `aware-trace - Aware control-plane capture analyzer

Usage:
  aware-trace <command> [flags] <file.trace>

Commands:
  view     View a capture in human-readable format
  export   Export a capture to JSONL
  stats    Show statistics about a capture

Use "aware-trace <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "stats":
		err = runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func readCaptureFile(path string) ([]log.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return log.ReadCapture(f)
}

func parseCategory(s string) (log.Category, error) {
	switch s {
	case "command":
		return log.CategoryCommand, nil
	case "response":
		return log.CategoryResponse, nil
	case "notification":
		return log.CategoryNotification, nil
	case "timeout":
		return log.CategoryTimeout, nil
	case "defect":
		return log.CategoryDefect, nil
	default:
		return 0, fmt.Errorf("unknown category: %q", s)
	}
}

func runView(args []string) error {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	category := fs.String("category", "", "Filter by category (command, response, notification, timeout, defect)")
	kind := fs.String("kind", "", "Filter by event kind")
	failures := fs.Bool("failures", false, "Show only events with a non-success status")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("capture file path required")
	}

	var catFilter *log.Category
	if *category != "" {
		c, err := parseCategory(*category)
		if err != nil {
			return err
		}
		catFilter = &c
	}

	events, err := readCaptureFile(fs.Arg(0))
	if err != nil {
		return err
	}

	for _, e := range events {
		if catFilter != nil && e.Category != *catFilter {
			continue
		}
		if *kind != "" && e.Kind != *kind {
			continue
		}
		if *failures && (e.Status == "" || e.Status == "SUCCESS") {
			continue
		}
		printEvent(os.Stdout, e)
	}
	return nil
}

func printEvent(w io.Writer, e log.Event) {
	fmt.Fprintf(w, "%s %-12s %-28s", e.Timestamp.Format("15:04:05.000"), e.Category, e.Kind)
	if e.TransactionID != 0 {
		fmt.Fprintf(w, " txn=%d", e.TransactionID)
	}
	if e.Status != "" {
		fmt.Fprintf(w, " status=%s", e.Status)
	}
	if e.ClientID != 0 {
		fmt.Fprintf(w, " client=%d", e.ClientID)
	}
	if e.SessionID != 0 {
		fmt.Fprintf(w, " session=%d", e.SessionID)
	}
	if e.Detail != "" {
		fmt.Fprintf(w, " detail=%q", e.Detail)
	}
	fmt.Fprintln(w)
}

// jsonEvent mirrors log.Event with JSON field names for export.
type jsonEvent struct {
	Timestamp     string `json:"ts"`
	Category      string `json:"category"`
	Kind          string `json:"kind,omitempty"`
	TransactionID uint16 `json:"txn,omitempty"`
	Status        string `json:"status,omitempty"`
	ClientID      int    `json:"client,omitempty"`
	SessionID     int    `json:"session,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	output := fs.String("o", "", "Output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("capture file path required")
	}

	events, err := readCaptureFile(fs.Arg(0))
	if err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	for _, e := range events {
		je := jsonEvent{
			Timestamp:     e.Timestamp.Format("2006-01-02T15:04:05.000000000Z07:00"),
			Category:      e.Category.String(),
			Kind:          e.Kind,
			TransactionID: e.TransactionID,
			Status:        e.Status,
			ClientID:      e.ClientID,
			SessionID:     e.SessionID,
			Detail:        e.Detail,
		}
		if err := enc.Encode(je); err != nil {
			return err
		}
	}
	return nil
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("capture file path required")
	}

	events, err := readCaptureFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("Empty capture")
		return nil
	}

	byCategory := make(map[log.Category]int)
	byKind := make(map[string]int)
	failures := 0
	for _, e := range events {
		byCategory[e.Category]++
		if e.Kind != "" {
			byKind[e.Kind]++
		}
		if e.Status != "" && e.Status != "SUCCESS" {
			failures++
		}
	}

	first, last := events[0].Timestamp, events[len(events)-1].Timestamp
	fmt.Printf("Events:   %d\n", len(events))
	fmt.Printf("Span:     %s to %s (%s)\n",
		first.Format("15:04:05.000"), last.Format("15:04:05.000"), last.Sub(first))
	fmt.Printf("Failures: %d\n\n", failures)

	fmt.Println("By category:")
	for c := log.CategoryCommand; c <= log.CategoryDefect; c++ {
		if n := byCategory[c]; n > 0 {
			fmt.Printf("  %-14s %d\n", c, n)
		}
	}

	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if byKind[kinds[i]] != byKind[kinds[j]] {
			return byKind[kinds[i]] > byKind[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})

	fmt.Println("\nTop kinds:")
	for i, k := range kinds {
		if i == 10 {
			break
		}
		fmt.Printf("  %-28s %d\n", k, byKind[k])
	}
	return nil
}
