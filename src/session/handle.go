package session

import (
	"fmt"
	"os"
	"os/exec"
)

// WorkerHandle is one spawned worker of the pipeline. Handles are owned
// exclusively by the orchestrator and never shared.
type WorkerHandle interface {
	// Start launches the worker.
	Start() error
	// Join blocks until the worker exits. A non-nil error covers both
	// abnormal exits and forced termination; the orchestrator does not
	// distinguish the two.
	Join() error
	// Terminate forcefully stops the worker. Best effort, no drain.
	Terminate() error
}

// SpawnFunc creates a worker handle for the given role and arguments.
// The production implementation launches OS processes; tests substitute
// an in-memory fake.
type SpawnFunc func(role string, args []string) WorkerHandle

// NewProcessSpawner returns a SpawnFunc that re-invokes the given binary
// with the role as its subcommand. Workers run as separate OS processes,
// so a crash in one cannot corrupt the others.
func NewProcessSpawner(binary string) SpawnFunc {
	return func(role string, args []string) WorkerHandle {
		cmd := exec.Command(binary, append([]string{role}, args...)...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		return &processHandle{role: role, cmd: cmd}
	}
}

type processHandle struct {
	role string
	cmd  *exec.Cmd
}

func (h *processHandle) Start() error {
	if err := h.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", h.role, err)
	}

	return nil
}

func (h *processHandle) Join() error {
	return h.cmd.Wait()
}

func (h *processHandle) Terminate() error {
	if h.cmd.Process == nil {
		return fmt.Errorf("cannot terminate %s: not started", h.role)
	}

	return h.cmd.Process.Kill()
}
