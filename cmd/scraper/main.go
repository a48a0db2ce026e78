package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"yakima-events-scraper/internal/config"
	"yakima-events-scraper/internal/services"
)

var configPath string

func main() {
	// A missing .env file is fine; deployed environments set real env vars.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "scraper",
		Short: "Event extraction pipeline for Yakima Valley sources",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	rootCmd.AddCommand(runCmd(), runAllCmd(), optimizeCmd(), sourcesCmd(), historyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <source-id>",
		Short: "Run the extraction pipeline for one source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := buildApp(ctx)
			if err != nil {
				return err
			}

			source, err := app.dynamo.GetSource(ctx, args[0])
			if err != nil {
				return err
			}

			result := app.runner.RunSource(ctx, source)
			printJSON(result)
			if result.Err != nil {
				return result.Err
			}
			return nil
		},
	}
}

func runAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-all",
		Short: "Run the extraction pipeline for every active source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := buildApp(ctx)
			if err != nil {
				return err
			}

			results, err := app.runner.RunAll(ctx)
			if err != nil {
				return err
			}
			printJSON(results)
			return nil
		},
	}
}

func optimizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize <source-id>",
		Short: "Analyze a source and persist an improved extraction strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := buildApp(ctx)
			if err != nil {
				return err
			}

			source, err := app.dynamo.GetSource(ctx, args[0])
			if err != nil {
				return err
			}

			result, err := app.optimizer.OptimizeSource(ctx, source)
			if err != nil {
				return err
			}
			printJSON(result)
			return nil
		},
	}
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List active sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := buildApp(ctx)
			if err != nil {
				return err
			}

			sources, err := app.dynamo.ListActiveSources(ctx)
			if err != nil {
				return err
			}
			printJSON(sources)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <source-id>",
		Short: "Show recent runs for a source, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := buildApp(ctx)
			if err != nil {
				return err
			}

			runs, err := app.dynamo.RecentRuns(ctx, args[0], limit)
			if err != nil {
				return err
			}
			printJSON(runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	return cmd
}

// app bundles the wired services behind the CLI commands.
type app struct {
	dynamo    *services.DynamoDBService
	runner    *services.SourceRunner
	optimizer *services.StrategyOptimizer
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	dynamo := services.NewDynamoDBService(
		dynamodb.NewFromConfig(awsCfg),
		cfg.EventsTable,
		cfg.SourcesTable,
		cfg.OperationsTable,
	)

	fetcher := services.NewContentFetcherWithTimeout(time.Duration(cfg.FetchTimeout) * time.Second)

	registry := services.NewParserRegistry()
	registry.Register(services.NewCalendarParser())
	registry.Register(services.NewHTMLParser())
	registry.Register(services.NewJSONParser())
	registry.Register(services.NewRegionalHTMLParser())

	firecrawlClient, err := services.NewFirecrawlClient()
	if err != nil {
		log.Printf("Firecrawl client unavailable: %v", err)
		firecrawlClient = nil
	}
	extractor, err := services.NewOpenAIExtractor()
	if err != nil {
		log.Printf("OpenAI extractor unavailable: %v", err)
		extractor = nil
	}
	aiParser := services.NewAICrawlParser(firecrawlClient, extractor)
	registry.Register(services.NewFallbackOrchestrator(aiParser, registry, fetcher))

	var geocoder services.Geocoder
	if g := services.NewGoogleGeocoder(); g != nil {
		geocoder = g
	}

	runner := services.NewSourceRunner(
		fetcher,
		registry,
		services.NewEventNormalizer(geocoder),
		services.NewDeduplicator(dynamo),
		dynamo, dynamo, dynamo,
	)
	if cfg.ArchiveBucket != "" {
		archive := services.NewContentArchiveWithClient(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket)
		runner = runner.WithArchive(archive)
	}

	return &app{
		dynamo:    dynamo,
		runner:    runner,
		optimizer: services.NewStrategyOptimizer(fetcher, dynamo, dynamo),
	}, nil
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Failed to render output: %v", err)
		return
	}
	fmt.Println(string(out))
}
