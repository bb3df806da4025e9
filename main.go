package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tableforge/app/events"
	"tableforge/app/fileloader"
	"tableforge/app/interfaces"
	"tableforge/app/runner"
	"tableforge/app/settings"
	"tableforge/app/ticket"
	"tableforge/app/trace"
)

func main() {
	formatFlag := flag.String("format", "", "target format: dbf, xlsx or csv (default from settings)")
	outDir := flag.String("out", ".", "output directory")
	merge := flag.Bool("merge", false, "merge every source into one output file")
	name := flag.String("name", "", "output name for merge mode")
	logPath := flag.String("log", "", "forensic log file (default from settings)")
	preview := flag.Bool("preview", false, "preview the first rows of each completed output")
	noHeader := flag.Bool("no-header", false, "treat the first row as data and generate column names")
	pattern := flag.String("pattern", "", "glob pattern for directory arguments")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: tableforge [flags] <file-or-directory>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := settings.GetEffectiveSettings()

	format, err := parseFormat(*formatFlag, cfg.DefaultFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}

	sink := *logPath
	if sink == "" {
		sink = cfg.LogPath
	}
	if sink == "" {
		if configDir, err := os.UserConfigDir(); err == nil {
			sink = filepath.Join(configDir, "tableforge", "tableforge.log")
		}
	}
	logger := trace.NewLogger(sink)
	defer logger.Close()

	bus := events.NewBus()
	eventsDone := watchEvents(bus)

	run := runner.NewRunner(logger, bus, cfg)

	opts := fileloader.DefaultFileOptions()
	opts.NoHeaderRow = *noHeader
	opts.FilePattern = *pattern

	logger.Logf(trace.LevelUserAction, "queued %d paths for analysis", len(paths))
	recordSets := run.AnalyzeWithOptions(paths, opts)
	if len(recordSets) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no usable sources found")
		os.Exit(1)
	}
	for _, set := range recordSets {
		fmt.Printf("analyzed %s [%s]: %d rows, %d columns\n",
			set.FileName, set.SheetName, len(set.Rows), len(set.Schema))
	}

	var tickets []*interfaces.ForgeTicket
	if *merge {
		if t := ticket.BuildMerged(recordSets, format, *outDir, *name); t != nil {
			tickets = append(tickets, t)
		}
	} else {
		tickets = ticket.BuildIndependent(recordSets, format, *outDir)
	}
	if len(tickets) == 0 {
		fmt.Fprintln(os.Stderr, "Error: nothing to export")
		os.Exit(1)
	}

	logger.Logf(trace.LevelUserAction, "starting export run with %d tickets", len(tickets))
	outcomes := run.ExportRun(tickets)

	failed := 0
	for _, outcome := range outcomes {
		switch outcome.Status {
		case interfaces.StatusSucceeded:
			fmt.Printf("wrote %s\n", outcome.Path)
		case interfaces.StatusSucceededWithWarnings:
			fmt.Printf("wrote %s (%d lossy cells)\n", outcome.Path, outcome.LossyCells)
		default:
			failed++
			fmt.Fprintf(os.Stderr, "failed %s: %s\n", outcome.Path, outcome.Err)
		}

		if *preview && outcome.Status != interfaces.StatusFailed {
			printPreview(run, outcome.Path)
		}
	}

	eventsDone()
	if failed > 0 {
		os.Exit(1)
	}
}

func parseFormat(s, fallback string) (interfaces.TargetFormat, error) {
	if s == "" {
		s = fallback
	}
	switch strings.ToLower(s) {
	case "dbf":
		return interfaces.FormatDBF, nil
	case "xlsx":
		return interfaces.FormatXLSX, nil
	case "csv":
		return interfaces.FormatCSV, nil
	}
	return 0, fmt.Errorf("unknown format %q", s)
}

// watchEvents drains the bus in the background, rendering progress and
// status transitions. The returned function unsubscribes and waits for the
// drain to finish.
func watchEvents(bus *events.Bus) func() {
	ch, unsubscribe := bus.Subscribe(256)
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		for event := range ch {
			switch payload := event.Payload.(type) {
			case events.ProgressPayload:
				if payload.Total > 0 {
					fmt.Printf("\r%s %d/%d", payload.Stage, payload.Current, payload.Total)
					if payload.Current >= payload.Total {
						fmt.Println()
					}
				}
			case events.TicketStatusPayload:
				fmt.Printf("ticket %s: %s\n", payload.TicketID, payload.Status)
			case events.LogPayload:
				fmt.Fprintf(os.Stderr, "[%s] %s\n", payload.Level, payload.Message)
			}
		}
	}()

	return func() {
		unsubscribe()
		wg.Wait()
	}
}

func printPreview(run *runner.Runner, path string) {
	rows, err := run.Preview(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "preview of %s failed: %v\n", path, err)
		return
	}
	fmt.Printf("--- %s ---\n", path)
	for _, row := range rows {
		fmt.Println(strings.Join(row, " | "))
	}
}
