// Command repl is a human-drivable entry point for the query engine, the
// same way the teacher ships cmd/cli: a line-oriented loop with a handful
// of session commands, everything else treated as a query against the
// active engine.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	dsearch "github.com/ritamzico/dsearch"
	"github.com/ritamzico/dsearch/internal/indices"
	"github.com/ritamzico/dsearch/internal/indices/keyword"
	"github.com/ritamzico/dsearch/internal/indices/name"
	"github.com/ritamzico/dsearch/internal/indices/percentile"
)

const helpText = `dsearch interactive REPL

Commands:
  load <metadata.json>   Load metadata and build a fresh engine against it
  mode <name>            Set the percentile mode: low_memory, full_precision, full_recall, exact
  strategy <name>        Set the evaluator strategy: simple, prefiltering, threaded, threaded_prefiltering
  highlight on|off        Toggle highlight collection
  help                    Show this help message
  exit / quit             Exit the REPL

Any other input is treated as a query against the loaded engine.

Query examples:
  keyword("climate (AND temperature)")
  col(name("revenue"; 3))
  keyword("sales") AND col(percentile(0.5; ge; 100))
`

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var engine *dsearch.Engine
	mode := dsearch.ModeLowMemory
	strategy := dsearch.StrategyPrefiltering
	highlighting := false

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("dsearch — dataset-discovery query engine")
	fmt.Println(`Type "help" for available commands.`)
	fmt.Println()

	defer func() {
		if engine != nil {
			engine.Close()
		}
	}()

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "exit", "quit":
			return

		case "help":
			fmt.Print(helpText)

		case "load":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: load <metadata.json>")
				continue
			}
			meta, err := dsearch.LoadMetadataFile(parts[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "error loading %q: %v\n", parts[1], err)
				continue
			}
			kw, err := keyword.NewMemory()
			if err != nil {
				fmt.Fprintf(os.Stderr, "error building keyword index: %v\n", err)
				continue
			}
			pct := percentile.New(nil)
			nm := name.New(meta, nil)
			if engine != nil {
				engine.Close()
			}
			engine = dsearch.New(meta, kw, pct, nm,
				dsearch.WithLogger(logger),
				dsearch.WithStrategy(strategy),
			)
			fmt.Printf("loaded metadata (%d docs, %d cols, %d hists)\n", meta.NumDocs, meta.NumCols, meta.NumHists)

		case "mode":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: mode <low_memory|full_precision|full_recall|exact>")
				continue
			}
			m, ok := indices.ParseMode(parts[1])
			if !ok {
				fmt.Fprintf(os.Stderr, "unknown mode %q\n", parts[1])
				continue
			}
			mode = m
			fmt.Printf("mode set to %s\n", mode)

		case "strategy":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: strategy <simple|prefiltering|threaded|threaded_prefiltering>")
				continue
			}
			s, ok := parseStrategy(parts[1])
			if !ok {
				fmt.Fprintf(os.Stderr, "unknown strategy %q\n", parts[1])
				continue
			}
			strategy = s
			fmt.Printf("strategy set to %s (takes effect on next load)\n", parts[1])

		case "highlight":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: highlight on|off")
				continue
			}
			highlighting = parts[1] == "on"
			fmt.Printf("highlighting %s\n", onOff(highlighting))

		default:
			if engine == nil {
				fmt.Fprintln(os.Stderr, "no engine loaded — use 'load <metadata.json>' first")
				continue
			}
			res, err := engine.Query(context.Background(), line, mode, highlighting)
			if err != nil {
				fmt.Fprintf(os.Stderr, "query error: %v\n", err)
				continue
			}
			printResult(res)
		}
	}
}

func parseStrategy(s string) (dsearch.Strategy, bool) {
	switch s {
	case "simple":
		return dsearch.StrategySimple, true
	case "prefiltering":
		return dsearch.StrategyPrefiltering, true
	case "threaded":
		return dsearch.StrategyThreaded, true
	case "threaded_prefiltering":
		return dsearch.StrategyThreadedPrefiltering, true
	default:
		return 0, false
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func printResult(res dsearch.QueryResult) {
	if len(res.Docs) == 0 {
		fmt.Println("(no matches)")
		return
	}
	docs := make([]string, len(res.Docs))
	for i, d := range res.Docs {
		docs[i] = strconv.FormatUint(uint64(d), 10)
	}
	fmt.Printf("%d match(es): %s\n", len(res.Docs), strings.Join(docs, ", "))
	for _, d := range res.Docs {
		fields, ok := res.Highlights.Docs[d]
		if !ok || len(fields) == 0 {
			continue
		}
		fmt.Printf("  doc %d:\n", d)
		for field, snippet := range fields {
			fmt.Printf("    %s: %s\n", field, snippet)
		}
	}
}
