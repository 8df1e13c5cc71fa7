package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"

	"newsflash-bot/internal/app"
	"newsflash-bot/internal/config"
	"newsflash-bot/internal/news"
	"newsflash-bot/internal/observability"
)

// scrape runs one category (or one source) once and prints the result as JSON.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	source := flag.String("source", "", "fetch a single source id instead of a category")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	category := news.General
	if flag.NArg() > 0 {
		c, err := news.ParseCategory(flag.Arg(0))
		if err != nil {
			log.Fatalf("%v", err)
		}
		category = c
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewWriterLogger(os.Stderr, cfg.Observability.LogLevel)

	a, err := app.New(cfg, logger, false)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var out interface{}
	if *source != "" {
		res, err := a.Aggregator().FetchSource(ctx, *source)
		if err != nil {
			a.Close(context.Background())
			log.Fatalf("FetchSource failed: %v", err)
		}
		out = map[string]news.SourceResult{*source: res}
	} else {
		res, err := a.Aggregator().FetchCategory(ctx, category)
		if err != nil {
			a.Close(context.Background())
			log.Fatalf("FetchCategory failed: %v", err)
		}
		out = res
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	a.Close(closeCtx)

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
	fmt.Println(string(data))
}
