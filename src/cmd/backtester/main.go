package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"daytrader/src/models"
	"daytrader/src/services"
)

type RunArgs struct {
	BatchList    bool
	DebugSymbols []string
	Strict       bool
	BatchIDs     []string
}

var runCmd = &cobra.Command{
	Use:   "backtester [flags] [batch-id ...]",
	Short: "Replay historical batches through the configured scanners",
	Run: func(cmd *cobra.Command, args []string) {
		batchList, err := cmd.Flags().GetBool("batch-list")
		if err != nil {
			log.Fatalf("error getting batch-list: %v", err)
		}

		debugSymbols, err := cmd.Flags().GetStringArray("debug-symbol")
		if err != nil {
			log.Fatalf("error getting debug-symbol: %v", err)
		}

		strict, err := cmd.Flags().GetBool("strict")
		if err != nil {
			log.Fatalf("error getting strict: %v", err)
		}

		if err := Run(RunArgs{
			BatchList:    batchList,
			DebugSymbols: debugSymbols,
			Strict:       strict,
			BatchIDs:     args,
		}); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

func Run(args RunArgs) error {
	catalogPath := os.Getenv("BATCH_CATALOG")
	if catalogPath == "" {
		catalogPath = filepath.Join("batches", "catalog.csv")
	}

	batches, err := services.LoadBatchCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load batch catalog: %w", err)
	}

	if args.BatchList {
		services.PrintBatchList(os.Stdout, batches)
		return nil
	}

	planDir := os.Getenv("TRADEPLAN_DIR")
	if planDir == "" {
		planDir = "."
	}

	planFilename := os.Getenv("TRADEPLAN_FILENAME")
	if planFilename == "" {
		planFilename = "tradeplan.yaml"
	}

	plan, err := models.LoadTradingPlan(filepath.Join(planDir, planFilename))
	if err != nil {
		return fmt.Errorf("failed to load trading plan: %w", err)
	}

	byID := make(map[string]services.BatchRecord, len(batches))
	for _, batch := range batches {
		byID[batch.ID] = batch
	}

	runner := &services.BacktestRunner{
		Plan:         plan,
		Strict:       args.Strict,
		DebugSymbols: args.DebugSymbols,
	}

	var results []services.BatchResult
	for _, id := range args.BatchIDs {
		batch, found := byID[id]
		if !found {
			return fmt.Errorf("unknown batch id %s", id)
		}

		log.Infof("replaying batch %s (%s)", batch.ID, batch.Symbol)

		result, err := runner.Replay(batch)
		if err != nil {
			return fmt.Errorf("failed to replay batch %s: %w", id, err)
		}

		results = append(results, result)
	}

	services.PrintBatchResults(os.Stdout, results)

	return nil
}

func main() {
	runCmd.Flags().BoolP("batch-list", "b", false, "List the available historical batches and exit.")
	runCmd.Flags().StringArrayP("debug-symbol", "d", nil, "Restrict the backtest focus to a symbol. Repeatable.")
	runCmd.Flags().BoolP("strict", "s", false, "Fail on data gaps instead of skipping them.")

	// An option-parsing failure prints usage; it is not a crash.
	runCmd.Execute()
}
