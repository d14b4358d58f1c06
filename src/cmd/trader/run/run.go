package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"daytrader/src/models"
	"daytrader/src/services"
	"daytrader/src/session"
	"daytrader/src/utils"
	"daytrader/src/version"
)

const (
	defaultProcScalingFactor = 2.0
	defaultWarmUpCandles     = 500
	marketOpenBuffer         = 1 * time.Second
)

type Args struct {
	GoEnv string
}

// ConfigurationError marks failures that mean "nothing to do" rather
// than a crash: the process reports them and exits cleanly with status 0.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string {
	return e.msg
}

func motd(runID string) {
	fmt.Println("+=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=+")
	log.Infof("daytrader %s (%s) starting", version.Version, version.Commit)
	log.Infof("session run id %s", runID)
	fmt.Println("+=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=-=+")
}

// Exec runs one full trading session: gate on the market window, build
// the instrument universe, warm up history, partition across workers and
// supervise the process pipeline until it completes or is interrupted.
func Exec(ctx context.Context, args Args) error {
	runID := uuid.NewString()

	motd(runID)

	if projectsDir := os.Getenv("PROJECTS_DIR"); projectsDir != "" {
		if err := utils.InitEnvironmentVariables(projectsDir, args.GoEnv); err != nil {
			return fmt.Errorf("failed to init environment variables: %w", err)
		}
	}

	plan, planPath, err := loadPlan()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	signal.Notify(stop, syscall.SIGTERM)

	coordinator := &session.ShutdownCoordinator{}
	handlesCh := make(chan []session.WorkerHandle, 1)

	go func() {
		select {
		case <-stop:
			log.Warn("interrupt received")
			cancel()
			coordinator.TerminateAll(<-handlesCh)
		case <-ctx.Done():
		}
	}()

	calendarURL, err := utils.GetEnv("TRADIER_CALENDAR_URL")
	if err != nil {
		return err
	}

	brokerToken, err := utils.GetEnv("TRADIER_BEARER_TOKEN")
	if err != nil {
		return err
	}

	calendar, err := services.NewCalendarClient(calendarURL, brokerToken)
	if err != nil {
		return err
	}

	gate := &session.Gate{
		Calendar:   calendar,
		OpenBuffer: marketOpenBuffer,
		CoolDown:   time.Duration(plan.CoolDownMinutes) * time.Minute,
	}

	result, err := gate.Evaluate(ctx, time.Now(), plan.BypassMarketSchedule)
	if err != nil {
		return err
	}

	if !result.Proceed {
		log.Infof("session %s not trading today", runID)
		return nil
	}

	universe, err := buildUniverse(plan, brokerToken)
	if err != nil {
		return err
	}

	dataDir, err := os.MkdirTemp("", "daytrader-*")
	if err != nil {
		return fmt.Errorf("failed to create session data dir: %w", err)
	}

	queueDir := filepath.Join(dataDir, "queues")
	if err := os.MkdirAll(queueDir, 0o755); err != nil {
		return fmt.Errorf("failed to create queue dir: %w", err)
	}

	symbols, warmUpDir, err := warmUp(ctx, plan, universe, dataDir)
	if err != nil {
		return err
	}

	if len(symbols) == 0 && !plan.ScannersOnly {
		log.Warnf("session %s has no tradeable instruments after warm-up", runID)
		return nil
	}

	workers := session.EstimateWorkerCount(plan.Workers, runtime.NumCPU(), session.SampleHostLoad(), procScalingFactor(plan))
	log.Infof("running %d workers for %d symbols", workers, len(symbols))

	assignment, shardSymbols, err := session.AssignSymbols(symbols, workers)
	if err != nil {
		return err
	}

	binary, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to resolve own executable: %w", err)
	}

	topology, err := session.NewTopology(session.TopologyConfig{
		RunID:        runID,
		PlanPath:     planPath,
		WarmUpDir:    warmUpDir,
		Symbols:      symbols,
		Assignment:   assignment,
		ShardSymbols: shardSymbols,
		Window:       result.Window,
		ScannersOnly: plan.ScannersOnly,
		QueueDir:     queueDir,
		Spawn:        session.NewProcessSpawner(binary),
	})
	if err != nil {
		return err
	}

	if err := topology.Start(); err != nil {
		coordinator.TerminateAll(topology.Started())
		return err
	}

	handlesCh <- topology.Started()

	topology.AwaitCompletion()

	log.Infof("session %s finished", runID)

	return nil
}

// loadPlan locates the trading plan through the configured
// folder/filename pair and validates it. All failures here are
// configuration errors: nothing to do, clean exit.
func loadPlan() (models.TradingPlan, string, error) {
	dir := os.Getenv("TRADEPLAN_DIR")
	if dir == "" {
		dir = "."
	}

	filename := os.Getenv("TRADEPLAN_FILENAME")
	if filename == "" {
		filename = "tradeplan.yaml"
	}

	planPath := filepath.Join(dir, filename)

	plan, err := models.LoadTradingPlan(planPath)
	if err != nil {
		return models.TradingPlan{}, "", &ConfigurationError{msg: err.Error()}
	}

	if err := plan.Validate(); err != nil {
		return models.TradingPlan{}, "", &ConfigurationError{msg: err.Error()}
	}

	return plan, planPath, nil
}

// buildUniverse merges the configured scan targets with symbols from
// currently open broker positions, preserving first-seen order.
func buildUniverse(plan models.TradingPlan, brokerToken string) ([]string, error) {
	universe := plan.ScanSymbols()

	if plan.SkipExistingPositions {
		return universe, nil
	}

	positionsURL, err := utils.GetEnv("TRADIER_POSITIONS_URL")
	if err != nil {
		return nil, err
	}

	positionsClient := &services.PositionsClient{URL: positionsURL, BearerToken: brokerToken}
	positions, err := positionsClient.FetchOpenPositions()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch open positions: %w", err)
	}

	seen := make(map[string]bool, len(universe))
	for _, symbol := range universe {
		seen[symbol] = true
	}

	for _, position := range positions {
		if !seen[position.Symbol] {
			seen[position.Symbol] = true
			universe = append(universe, position.Symbol)
			log.Infof("tracking %s from an open position", position.Symbol)
		}
	}

	return universe, nil
}

// warmUp fetches history for the universe; its result's key set is the
// finalized instrument universe, with first-seen order preserved.
func warmUp(ctx context.Context, plan models.TradingPlan, universe []string, dataDir string) ([]string, string, error) {
	apiKey, err := utils.GetEnv("POLYGON_API_KEY")
	if err != nil {
		return nil, "", err
	}

	maxCandles := plan.WarmUpCandles
	if maxCandles <= 0 {
		maxCandles = defaultWarmUpCandles
	}

	warmUpDir := filepath.Join(dataDir, "warmup")
	histories, err := services.NewWarmUpService(apiKey).WarmUp(ctx, universe, maxCandles, warmUpDir)
	if err != nil {
		return nil, "", err
	}

	var symbols []string
	for _, symbol := range universe {
		if _, found := histories[symbol]; found {
			symbols = append(symbols, symbol)
		}
	}

	return symbols, warmUpDir, nil
}

func procScalingFactor(plan models.TradingPlan) float64 {
	if plan.ProcScalingFactor > 0 {
		return plan.ProcScalingFactor
	}

	return defaultProcScalingFactor
}
