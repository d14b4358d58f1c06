package session

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// ShutdownCoordinator force-terminates the topology on an external
// interrupt. Termination is a best-effort immediate stop with no drain
// semantics: there is no persisted checkpoint to resume from, so there
// is nothing to hand over gracefully.
type ShutdownCoordinator struct {
	mu         sync.Mutex
	terminated bool
}

// TerminateAll issues Terminate to every started handle exactly once,
// even when called from multiple paths. It never re-raises: after it
// returns the run is considered complete regardless of how the child
// processes exited.
func (s *ShutdownCoordinator) TerminateAll(handles []WorkerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.terminated {
		return
	}
	s.terminated = true

	log.Warnf("terminating %d running workers", len(handles))

	for _, handle := range handles {
		if err := handle.Terminate(); err != nil {
			log.Warnf("terminate failed: %v", err)
		}
	}
}
