// Package gpu implements the vendor-agnostic GPU port plus the
// AMD and NVIDIA probes that back it. A Probe reports manufacturer,
// card inventory, and per-process attribution; callers never talk to
// rocm-smi or NVML directly.
package gpu

import "github.com/hpcsonar/sonar/pkg/model"

// UserLookup resolves a pid to its (username, uid), mirroring the
// process table the sampler produced. ok is false for pids the sampler
// never saw (already-exited processes still reported by a GPU tool).
type UserLookup func(pid int) (user string, uid uint32, ok bool)

// CardState is a lightweight, probe-specific status string (e.g.
// temperature or power state); most probes report none.
type CardState struct {
	Device int
	State  string
}

// Probe is the vendor-agnostic GPU port: manufacturer name, card
// inventory, per-process utilization, and optional per-card state.
type Probe interface {
	Manufacturer() string
	Cards() ([]model.Card, error)
	ProcessUtilization(lookup UserLookup) ([]model.GpuProcess, error)
	CardState() ([]CardState, error)
}
