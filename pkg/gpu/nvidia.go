//go:build linux

// Implements the NVIDIA probe: a deliberately minimal go-nvml
// wrapper. Per the Non-goal "vendor-library bindings beyond a
// count/memory probe", beyond Init/Shutdown this touches only
// DeviceGetCount, DeviceGetHandleByIndex, and each device's GetName and
// GetMemoryInfo — never utilization, process, or clock APIs.
package gpu

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/hpcsonar/sonar/pkg/model"
)

// NvidiaProbe implements Probe over NVML. Per-process attribution is
// not attempted (NVML's process-accounting APIs are out of scope here);
// ProcessUtilization always returns no rows.
type NvidiaProbe struct{}

// ProbeNvidia initializes NVML and returns a probe if initialization
// succeeds, ok=false (not an error) otherwise — absence of the library
// or driver is treated identically to an AMD probe-miss.
func ProbeNvidia() (*NvidiaProbe, bool) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, false
	}
	return &NvidiaProbe{}, true
}

// Shutdown releases NVML. Callers must call this once they are done
// with the probe for the snapshot.
func (p *NvidiaProbe) Shutdown() {
	nvml.Shutdown()
}

func (p *NvidiaProbe) Manufacturer() string { return "NVIDIA" }

// Cards returns device count, name, and total/used memory for every
// NVML-visible device. A device that fails any individual call is
// skipped rather than failing the whole probe.
func (p *NvidiaProbe) Cards() ([]model.Card, error) {
	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("gpu: nvml device count: %v", ret)
	}

	var cards []model.Card
	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}
		name, ret := dev.GetName()
		if ret != nvml.SUCCESS {
			continue
		}
		mem, ret := dev.GetMemoryInfo()
		if ret != nvml.SUCCESS {
			continue
		}
		cards = append(cards, model.Card{
			Model:       name,
			MemTotalKiB: mem.Total / 1024,
			MemUsedKiB:  mem.Used / 1024,
		})
	}
	return cards, nil
}

// CardState always returns empty; NVML's richer health/throttle state
// APIs are out of scope for this probe.
func (p *NvidiaProbe) CardState() ([]CardState, error) {
	return nil, nil
}

// ProcessUtilization always returns no rows. Per-process GPU
// attribution on NVIDIA hardware would need nvmlDeviceGetComputeRunningProcesses
// and friends, explicitly excluded by the Non-goal this probe is scoped to.
func (p *NvidiaProbe) ProcessUtilization(lookup UserLookup) ([]model.GpuProcess, error) {
	return nil, nil
}
