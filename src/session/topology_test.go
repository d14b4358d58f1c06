package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrader/src/models"
)

type fakeHandle struct {
	role       string
	args       []string
	started    bool
	joined     bool
	terminated int
}

func (h *fakeHandle) Start() error { h.started = true; return nil }
func (h *fakeHandle) Join() error  { h.joined = true; return nil }
func (h *fakeHandle) Terminate() error {
	h.terminated++
	return nil
}

type fakeSpawner struct {
	handles []*fakeHandle
}

func (s *fakeSpawner) spawn(role string, args []string) WorkerHandle {
	h := &fakeHandle{role: role, args: args}
	s.handles = append(s.handles, h)
	return h
}

func (s *fakeSpawner) byRole(role string) []*fakeHandle {
	var out []*fakeHandle
	for _, h := range s.handles {
		if h.role == role {
			out = append(out, h)
		}
	}
	return out
}

func testWindow() *models.Calendar {
	return &models.Calendar{
		Date:        "2024-06-10",
		MarketOpen:  time.Date(2024, 6, 10, 13, 30, 0, 0, time.UTC),
		MarketClose: time.Date(2024, 6, 10, 20, 0, 0, 0, time.UTC),
	}
}

func testConfig(spawner *fakeSpawner) TopologyConfig {
	return TopologyConfig{
		RunID:      "run-1",
		PlanPath:   "/tmp/tradeplan.yaml",
		WarmUpDir:  "/tmp/warmup",
		Symbols:    []string{"AAA", "BBB", "CCC"},
		Assignment: models.SymbolAssignment{"AAA": 0, "BBB": 1, "CCC": 0},
		ShardSymbols: [][]string{
			{"AAA", "CCC"},
			{"BBB"},
		},
		Window:   testWindow(),
		QueueDir: "/tmp/queues",
		Spawn:    spawner.spawn,
	}
}

func TestTopology(t *testing.T) {
	t.Run("full pipeline construction and wiring", func(t *testing.T) {
		spawner := &fakeSpawner{}

		topology, err := NewTopology(testConfig(spawner))
		require.NoError(t, err)

		require.Len(t, spawner.byRole(RoleConsumer), 2)
		require.Len(t, spawner.byRole(RoleProducer), 1)
		require.Len(t, spawner.byRole(RoleScanner), 1)
		assert.Len(t, topology.ShardQueues(), 2)

		// each consumer is bound to its own shard queue in shard order
		consumers := spawner.byRole(RoleConsumer)
		for i, consumer := range consumers {
			assert.Contains(t, consumer.args, topology.ShardQueues()[i])
		}
		assert.Contains(t, consumers[0].args, "AAA,CCC")
		assert.Contains(t, consumers[1].args, "BBB")

		// the producer sees every shard queue plus the scanner feed
		producer := spawner.byRole(RoleProducer)[0]
		for _, q := range topology.ShardQueues() {
			assert.Contains(t, producer.args, q)
		}
		assert.Contains(t, producer.args, topology.ScannerFeed())
		assert.Contains(t, producer.args, "AAA=0,BBB=1,CCC=0")

		scanner := spawner.byRole(RoleScanner)[0]
		assert.Contains(t, scanner.args, topology.ScannerFeed())
	})

	t.Run("start launches everything and await joins everything", func(t *testing.T) {
		spawner := &fakeSpawner{}

		topology, err := NewTopology(testConfig(spawner))
		require.NoError(t, err)
		require.NoError(t, topology.Start())

		assert.Len(t, topology.Started(), 4)
		for _, h := range spawner.handles {
			assert.True(t, h.started)
		}

		topology.AwaitCompletion()
		for _, h := range spawner.handles {
			assert.True(t, h.joined)
		}
	})

	t.Run("scanners-only never constructs producer or consumers", func(t *testing.T) {
		spawner := &fakeSpawner{}

		cfg := testConfig(spawner)
		cfg.ScannersOnly = true

		topology, err := NewTopology(cfg)
		require.NoError(t, err)

		assert.Empty(t, spawner.byRole(RoleProducer))
		assert.Empty(t, spawner.byRole(RoleConsumer))
		require.Len(t, spawner.byRole(RoleScanner), 1)
		assert.Contains(t, spawner.byRole(RoleScanner)[0].args, topology.ScannerFeed())

		require.NoError(t, topology.Start())
		assert.Len(t, topology.Started(), 1)
	})

	t.Run("interrupt terminates each started worker exactly once", func(t *testing.T) {
		spawner := &fakeSpawner{}

		topology, err := NewTopology(testConfig(spawner))
		require.NoError(t, err)
		require.NoError(t, topology.Start())

		coordinator := &ShutdownCoordinator{}
		coordinator.TerminateAll(topology.Started())
		coordinator.TerminateAll(topology.Started())

		require.Len(t, spawner.handles, 4)
		for _, h := range spawner.handles {
			assert.Equal(t, 1, h.terminated)
		}
	})

	t.Run("missing window rejected", func(t *testing.T) {
		spawner := &fakeSpawner{}

		cfg := testConfig(spawner)
		cfg.Window = nil

		_, err := NewTopology(cfg)
		assert.Error(t, err)
	})
}
