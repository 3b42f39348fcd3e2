package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vladimirnetworks/webcite/internal/config"
	"github.com/vladimirnetworks/webcite/internal/ingest"
	"github.com/vladimirnetworks/webcite/internal/storage"
)

func main() {
	cfgPath := flag.String("config", "", "Path to configuration file (defaults apply when empty)")
	baseURL := flag.String("base", "", "Base document URL image references resolve against")
	tenant := flag.String("tenant", "", "Tenant namespace owning the stored assets")
	title := flag.String("title", "", "Fallback title for images without alt/title attributes")
	input := flag.String("input", "-", "HTML fragment file, or - for stdin")
	flag.Parse()

	if *baseURL == "" || *tenant == "" {
		fmt.Fprintln(os.Stderr, "both -base and -tenant are required")
		os.Exit(2)
	}

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}

	fragment, err := readFragment(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read fragment: %v\n", err)
		os.Exit(1)
	}

	var store storage.AssetStore
	if cfg.DB.Driver != "" && cfg.DB.DSN != "" {
		sqlStore, err := storage.NewSQLStore(cfg.DB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open asset store: %v\n", err)
			os.Exit(1)
		}
		defer sqlStore.Close()
		store = sqlStore
	} else {
		store = storage.NewMemStore()
	}

	ingestor, err := ingest.New(cfg, store, *tenant)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise ingestor: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := ingestor.IngestAll(ctx, fragment, *baseURL, *title)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingestion failed: %v\n", err)
		os.Exit(1)
	}

	for _, embed := range result.Embeds {
		fmt.Println(embed)
	}
	if len(result.Failures) > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d images skipped\n",
			len(result.Failures), len(result.Failures)+len(result.Embeds))
	}
}

func readFragment(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}
