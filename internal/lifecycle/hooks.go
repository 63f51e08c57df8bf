package lifecycle

import "context"

// Phase orders shutdown hooks. Hooks of one phase run concurrently; phases run in order.
type Phase int

const (
	// PhaseIngress stops accepting new work: HTTP listeners and queue consumers.
	PhaseIngress Phase = iota
	// PhaseWorkers drains background loops.
	PhaseWorkers
	// PhaseResources closes connections the earlier phases still needed.
	PhaseResources
)

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Phase Phase
	Fn    func(ctx context.Context) error
}
