package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/jcarver/oddsparity/internal/config"
	"github.com/jcarver/oddsparity/internal/logging"
	"github.com/jcarver/oddsparity/internal/oddseq"
	sqlstore "github.com/jcarver/oddsparity/internal/storage/sqlite"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	outPath := flag.String("out", "", "optional file for the full JSON report")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[progression] config: %v", err)
	}
	logging.SetLevel(cfg.Logging.Level)

	paths := cfg.ProgressionPaths()
	if len(paths) == 0 {
		logging.Fatalf("[progression] no threshold paths configured")
	}

	store, err := sqlstore.Open(cfg.Storage.SQLitePath)
	if err != nil {
		logging.Fatalf("[progression] open sqlite: %v", err)
	}
	defer store.Close()

	series, err := store.LoadOddsSeries(ctx)
	if err != nil {
		logging.Fatalf("[progression] load odds series: %v", err)
	}
	logging.Infof("[progression] loaded %d event series, %d paths, max gap %s",
		len(series), len(paths), cfg.Progression.MaxGap)

	analyzer, err := oddseq.New(cfg.Progression.MaxGap, paths)
	if err != nil {
		logging.Fatalf("[progression] analyzer: %v", err)
	}
	result, err := analyzer.Run(series)
	if err != nil {
		logging.Fatalf("[progression] run: %v", err)
	}

	printReport(result)

	runAt := time.Now().UTC()
	if err := store.InsertProgressionStats(ctx, result.Stats, runAt); err != nil {
		logging.Errorf("[progression] persist stats: %v", err)
	}

	if *outPath != "" {
		if err := writeReport(*outPath, result); err != nil {
			logging.Errorf("[progression] write report: %v", err)
		} else {
			logging.Infof("[progression] report written to %s", *outPath)
		}
	}
}

func printReport(result oddseq.Result) {
	fmt.Printf("sequences: %d (dropped %d bad points)\n", result.Sequences, result.DroppedPoints)
	for _, st := range result.Stats {
		fmt.Printf("\npath %s %v\n", st.Path.Direction, st.Path.Thresholds)
		fmt.Printf("  sequences reaching %.2f: %d\n", st.Path.From(), st.SequenceBase)
		fmt.Printf("  sequences completing:    %d\n", st.SequenceSuccess)
		if rate, ok := st.SequenceRate(); ok {
			fmt.Printf("  sequence rate:           %.4f\n", rate)
		} else {
			fmt.Printf("  sequence rate:           undefined\n")
		}
		fmt.Printf("  events reaching:         %d\n", len(st.BaseEvents))
		fmt.Printf("  events completing:       %d\n", len(st.SuccessEvents))
		if rate, ok := st.EventRate(); ok {
			fmt.Printf("  event rate:              %.4f\n", rate)
		} else {
			fmt.Printf("  event rate:              undefined\n")
		}
		fmt.Printf("  base crossings:          %d\n", st.BaseCrossings)
	}
}

func writeReport(path string, result oddseq.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
