package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"daytrader/src/cmd/trader/run"
	"daytrader/src/models"
	"daytrader/src/worker"
)

const defaultFeedURL = "wss://socket.polygon.io/stocks"

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Run one trading session: gate on the market window, warm up, partition and supervise the pipeline",
	Run: func(cmd *cobra.Command, args []string) {
		goEnv, err := cmd.Flags().GetString("go-env")
		if err != nil {
			log.Fatalf("error getting go-env: %v", err)
		}

		if err := run.Exec(context.Background(), run.Args{GoEnv: goEnv}); err != nil {
			var cfgErr *run.ConfigurationError
			if errors.As(err, &cfgErr) {
				// nothing to do, not a crash
				log.Errorf("configuration error: %v", cfgErr)
				return
			}

			log.Fatalf("Error: %v", err)
		}

		log.Info("Done")
	},
}

var producerCmd = &cobra.Command{
	Use:    "producer",
	Short:  "Stream live data into the shard queues and the scanner feed",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		runID := mustString(cmd, "run-id")
		mustLoadPlan(cmd)

		assignment, err := models.ParseSymbolAssignment(mustString(cmd, "assignment"))
		if err != nil {
			log.Fatalf("error parsing assignment: %v", err)
		}

		queues, err := cmd.Flags().GetStringArray("queue")
		if err != nil {
			log.Fatalf("error getting queues: %v", err)
		}

		feedURL := os.Getenv("DATA_FEED_WS_URL")
		if feedURL == "" {
			feedURL = defaultFeedURL
		}

		apiKey := os.Getenv("POLYGON_API_KEY")
		if apiKey == "" {
			log.Fatalf("missing POLYGON_API_KEY environment variable")
		}

		err = worker.RunProducer(context.Background(), worker.ProducerArgs{
			RunID:       runID,
			FeedURL:     feedURL,
			APIKey:      apiKey,
			Symbols:     splitSymbols(mustString(cmd, "symbols")),
			Assignment:  assignment,
			WindowClose: mustTime(cmd, "window-close"),
			ShardQueues: queues,
			FeedQueue:   mustString(cmd, "feed"),
		})
		if err != nil {
			log.Fatalf("producer failed: %v", err)
		}
	},
}

var consumerCmd = &cobra.Command{
	Use:    "consumer",
	Short:  "Process live data for one shard's instruments",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		err := worker.RunConsumer(context.Background(), worker.ConsumerArgs{
			RunID:     mustString(cmd, "run-id"),
			Symbols:   splitSymbols(mustString(cmd, "symbols")),
			QueuePath: mustString(cmd, "queue"),
			WarmUpDir: mustString(cmd, "warmup-dir"),
			Plan:      mustLoadPlan(cmd),
		})
		if err != nil {
			log.Fatalf("consumer failed: %v", err)
		}
	},
}

var scannerCmd = &cobra.Command{
	Use:    "scanner",
	Short:  "Evaluate the configured scanners against the feed queue",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		err := worker.RunScanner(context.Background(), worker.ScannerArgs{
			RunID:       mustString(cmd, "run-id"),
			WindowOpen:  mustTime(cmd, "window-open"),
			WindowClose: mustTime(cmd, "window-close"),
			FeedQueue:   mustString(cmd, "feed"),
			Plan:        mustLoadPlan(cmd),
		})
		if err != nil {
			log.Fatalf("scanner failed: %v", err)
		}
	},
}

func mustString(cmd *cobra.Command, name string) string {
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		log.Fatalf("error getting %s: %v", name, err)
	}

	return value
}

func mustTime(cmd *cobra.Command, name string) time.Time {
	value, err := time.Parse(time.RFC3339, mustString(cmd, name))
	if err != nil {
		log.Fatalf("error parsing %s: %v", name, err)
	}

	return value
}

func mustLoadPlan(cmd *cobra.Command) models.TradingPlan {
	plan, err := models.LoadTradingPlan(mustString(cmd, "plan"))
	if err != nil {
		log.Fatalf("error loading trading plan: %v", err)
	}

	return plan
}

func splitSymbols(s string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, ",")
}

func main() {
	rootCmd.PersistentFlags().String("go-env", "development", "The go environment to run the command in.")

	for _, cmd := range []*cobra.Command{producerCmd, consumerCmd, scannerCmd} {
		cmd.Flags().String("run-id", "", "The session run id for log correlation.")
		cmd.Flags().String("plan", "", "Path to the trading plan file.")
		cmd.MarkFlagRequired("run-id")
		cmd.MarkFlagRequired("plan")
	}

	producerCmd.Flags().String("symbols", "", "Comma-separated instrument universe.")
	producerCmd.Flags().String("assignment", "", "Symbol to shard assignment, e.g. AAA=0,BBB=1.")
	producerCmd.Flags().String("window-close", "", "RFC3339 market close time.")
	producerCmd.Flags().String("feed", "", "Scanner feed queue path.")
	producerCmd.Flags().StringArray("queue", nil, "Shard queue paths in shard order.")

	consumerCmd.Flags().String("symbols", "", "Comma-separated symbols owned by this shard.")
	consumerCmd.Flags().String("queue", "", "This shard's queue path.")
	consumerCmd.Flags().String("warmup-dir", "", "Directory holding warm-up history CSVs.")

	scannerCmd.Flags().String("window-open", "", "RFC3339 market open time.")
	scannerCmd.Flags().String("window-close", "", "RFC3339 market close time.")
	scannerCmd.Flags().String("feed", "", "Scanner feed queue path.")

	rootCmd.AddCommand(producerCmd, consumerCmd, scannerCmd)

	rootCmd.Execute()
}
