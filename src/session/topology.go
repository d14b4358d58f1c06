package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"daytrader/src/models"
)

const (
	RoleProducer = "producer"
	RoleConsumer = "consumer"
	RoleScanner  = "scanner"
)

// TopologyConfig carries everything one session run needs to wire the
// pipeline. All of it is computed before construction begins and treated
// as read-only afterwards.
type TopologyConfig struct {
	RunID        string
	PlanPath     string
	WarmUpDir    string
	Symbols      []string
	Assignment   models.SymbolAssignment
	ShardSymbols [][]string
	Window       *models.Calendar
	ScannersOnly bool

	// QueueDir is where the per-shard and scanner-feed sockets live.
	QueueDir string

	Spawn SpawnFunc
}

// Topology is the full process pipeline for one session run: one
// dedicated queue per worker shard, one scanner-feed queue, N consumers,
// one producer and one scanner. In scanners-only mode the producer and
// consumer pool are never constructed.
type Topology struct {
	producer  WorkerHandle
	scanner   WorkerHandle
	consumers []WorkerHandle

	shardQueues []string
	scannerFeed string

	started []WorkerHandle
}

// NewTopology constructs the pipeline in dependency order: shard queues,
// then the scanner feed, then consumers bound positionally to their
// queues, then the producer with the full queue set, then the scanner.
func NewTopology(cfg TopologyConfig) (*Topology, error) {
	if cfg.Spawn == nil {
		return nil, fmt.Errorf("NewTopology: no spawner configured")
	}

	if cfg.Window == nil {
		return nil, fmt.Errorf("NewTopology: no trading window")
	}

	workerCount := len(cfg.ShardSymbols)

	t := &Topology{
		shardQueues: make([]string, 0, workerCount),
		scannerFeed: filepath.Join(cfg.QueueDir, "scanner-feed.sock"),
	}

	for shard := 0; shard < workerCount; shard++ {
		t.shardQueues = append(t.shardQueues, filepath.Join(cfg.QueueDir, fmt.Sprintf("shard-%d.sock", shard)))
	}

	if !cfg.ScannersOnly {
		for shard := 0; shard < workerCount; shard++ {
			args := []string{
				"--run-id", cfg.RunID,
				"--plan", cfg.PlanPath,
				"--queue", t.shardQueues[shard],
				"--warmup-dir", cfg.WarmUpDir,
			}
			if len(cfg.ShardSymbols[shard]) > 0 {
				args = append(args, "--symbols", strings.Join(cfg.ShardSymbols[shard], ","))
			}

			t.consumers = append(t.consumers, cfg.Spawn(RoleConsumer, args))
		}

		producerArgs := []string{
			"--run-id", cfg.RunID,
			"--plan", cfg.PlanPath,
			"--symbols", strings.Join(cfg.Symbols, ","),
			"--assignment", cfg.Assignment.Encode(),
			"--window-close", cfg.Window.MarketClose.Format(time.RFC3339),
			"--feed", t.scannerFeed,
		}
		for _, q := range t.shardQueues {
			producerArgs = append(producerArgs, "--queue", q)
		}

		t.producer = cfg.Spawn(RoleProducer, producerArgs)
	}

	t.scanner = cfg.Spawn(RoleScanner, []string{
		"--run-id", cfg.RunID,
		"--plan", cfg.PlanPath,
		"--window-open", cfg.Window.MarketOpen.Format(time.RFC3339),
		"--window-close", cfg.Window.MarketClose.Format(time.RFC3339),
		"--feed", t.scannerFeed,
	})

	return t, nil
}

// ShardQueues returns the per-shard socket paths in shard order.
func (t *Topology) ShardQueues() []string {
	return t.shardQueues
}

func (t *Topology) ScannerFeed() string {
	return t.scannerFeed
}

// Start launches the scanner unconditionally, then the producer and the
// consumer pool when present. A start failure of one worker does not
// roll back the ones already running; the caller's shutdown path
// terminates them.
func (t *Topology) Start() error {
	if err := t.scanner.Start(); err != nil {
		return err
	}
	t.started = append(t.started, t.scanner)

	if t.producer != nil {
		for i, consumer := range t.consumers {
			if err := consumer.Start(); err != nil {
				return fmt.Errorf("failed to start consumer %d: %w", i, err)
			}
			t.started = append(t.started, consumer)
		}

		if err := t.producer.Start(); err != nil {
			return err
		}
		t.started = append(t.started, t.producer)
	}

	log.Infof("topology started with %d workers", len(t.started))

	return nil
}

// AwaitCompletion blocks until every started worker exits: producer
// first, then scanner, then each consumer, sequentially. The scanner is
// the natural long-running driver and consumers only stop once the
// producer stops feeding them, hence the fixed order. Individual exit
// errors are logged, never retried or escalated.
func (t *Topology) AwaitCompletion() {
	if t.producer != nil {
		if err := t.producer.Join(); err != nil {
			log.Warnf("producer exited: %v", err)
		}
	}

	if err := t.scanner.Join(); err != nil {
		log.Warnf("scanner exited: %v", err)
	}

	for i, consumer := range t.consumers {
		if err := consumer.Join(); err != nil {
			log.Warnf("consumer %d exited: %v", i, err)
		}
	}
}

// Started returns the handles that were actually launched, in start
// order. Workers skipped in scanners-only mode never appear here.
func (t *Topology) Started() []WorkerHandle {
	return t.started
}
