// Implements the AMD probe: parses rocm-smi output. This is the
// hard attribution path — rocm-smi exposes per-device utilization and a
// separate per-pid device map, and nothing ties them together, so the
// probe reconciles the two itself.
package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hpcsonar/sonar/pkg/model"
	"github.com/hpcsonar/sonar/pkg/subprocess"
)

const rocmSmiCommand = "rocm-smi"

// DefaultAmdSysPath is where the amdgpu kernel module, if loaded, always
// shows up; its presence is the cheapest possible "is there an AMD card"
// check and avoids shelling out on nodes that plainly have none.
const DefaultAmdSysPath = "/sys/module/amdgpu"

// AmdProbe implements Probe by shelling out to rocm-smi.
type AmdProbe struct {
	runner     subprocess.Runner
	timeout    time.Duration
	pathExists func(string) bool
}

// ProbeAmd returns an AmdProbe if the amdgpu kernel module is present,
// and ok=false otherwise (no card, not an error).
func ProbeAmd(runner subprocess.Runner, timeout time.Duration) (*AmdProbe, bool) {
	p := &AmdProbe{runner: runner, timeout: timeout, pathExists: defaultPathExists}
	if !p.present() {
		return nil, false
	}
	return p, true
}

func defaultPathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (p *AmdProbe) present() bool {
	return p.pathExists(DefaultAmdSysPath)
}

func (p *AmdProbe) Manufacturer() string { return "AMD" }

// Cards parses `rocm-smi --showproductname`. Memory totals are always
// zero: rocm-smi does not report installed VRAM reliably, per the
// original tool's own finding. The separate PCI-based enrichment adds
// vendor/device ids only and leaves memory at zero.
func (p *AmdProbe) Cards() ([]model.Card, error) {
	out, err := p.runner.Run(context.Background(), rocmSmiCommand, []string{"--showproductname"}, p.timeout)
	if err != nil {
		if subprocess.IsCouldNotStart(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gpu: rocm-smi --showproductname: %w", err)
	}
	return parseProductNames(string(out)), nil
}

func parseProductNames(rawText string) []model.Card {
	var cards []model.Card
	for _, l := range strings.Split(rawText, "\n") {
		if !strings.HasPrefix(l, "GPU[") {
			continue
		}
		if _, after, ok := strings.Cut(l, "Card series:"); ok {
			cards = append(cards, model.Card{Model: strings.TrimSpace(after)})
		} else if _, after, ok := strings.Cut(l, "Card Series:"); ok {
			cards = append(cards, model.Card{Model: strings.TrimSpace(after)})
		}
	}
	return cards
}

// CardState always returns empty: rocm-smi's health/state fields were
// never reliable enough on the hardware this was validated against to
// report.
func (p *AmdProbe) CardState() ([]CardState, error) {
	return nil, nil
}

// ProcessUtilization runs the two rocm-smi invocations and reconciles
// them (AMD attribution algorithm).
func (p *AmdProbe) ProcessUtilization(lookup UserLookup) ([]model.GpuProcess, error) {
	perDevice, err := p.rawPerDeviceInfo()
	if err != nil {
		return nil, err
	}
	perPid, err := p.rawPerPidInfo()
	if err != nil {
		return nil, err
	}
	return extractAmdInformation(perDevice, perPid, lookup), nil
}

type deviceUtil struct {
	gpuPct, memPct float64
}

type pidDevices struct {
	pid     int
	devices []int
}

// extractAmdInformation splits each device's utilization evenly among
// the processes sharing it. Output is sorted (device, pid).
func extractAmdInformation(perDevice []deviceUtil, perPid []pidDevices, lookup UserLookup) []model.GpuProcess {
	numProcessesPerDevice := make([]int, len(perDevice))
	for _, pd := range perPid {
		for _, dev := range pd.devices {
			if dev < len(numProcessesPerDevice) {
				numProcessesPerDevice[dev]++
			}
		}
	}

	var processes []model.GpuProcess
	for _, pd := range perPid {
		for _, dev := range pd.devices {
			if dev >= len(perDevice) {
				continue
			}
			user, uid, ok := lookup(pd.pid)
			if !ok {
				user = fmt.Sprintf("_zombie_%d", pd.pid)
				uid = model.ZombieUID
			}
			n := float64(numProcessesPerDevice[dev])
			processes = append(processes, model.GpuProcess{
				Device:      dev,
				DeviceValid: true,
				PID:         pd.pid,
				UID:         uid,
				User:        user,
				GPUPct:      perDevice[dev].gpuPct / n,
				MemPct:      perDevice[dev].memPct / n,
				MemSizeKiB:  0,
				Command:     "_noinfo_",
			})
		}
	}

	sort.Slice(processes, func(i, j int) bool {
		if processes[i].Device != processes[j].Device {
			return processes[i].Device < processes[j].Device
		}
		return processes[i].PID < processes[j].PID
	})
	return processes
}

func (p *AmdProbe) rawPerDeviceInfo() ([]deviceUtil, error) {
	out, err := p.runner.Run(context.Background(), rocmSmiCommand,
		[]string{"--showuse", "--showmemuse", "--csv"}, p.timeout)
	if err == nil {
		if info, perr := parseCSVConciseCommand(string(out)); perr == nil {
			return info, nil
		}
		// Parse failed; fall through to the legacy text form below.
	} else if subprocess.IsCouldNotStart(err) {
		return nil, nil
	}

	out, err = p.runner.Run(context.Background(), rocmSmiCommand, nil, p.timeout)
	if err != nil {
		if subprocess.IsCouldNotStart(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gpu: rocm-smi: %w", err)
	}
	return parseTextConciseCommand(string(out))
}

// parseCSVConciseCommand parses `rocm-smi --showuse --showmemuse --csv`.
func parseCSVConciseCommand(rawText string) ([]deviceUtil, error) {
	var mappings []deviceUtil
	foundDevice := false
	for _, l := range strings.Split(rawText, "\n") {
		switch {
		case strings.HasPrefix(l, "device"):
			if foundDevice {
				return nil, ErrInconsistentCSV
			}
			fields := strings.Split(l, ",")
			if len(fields) >= 3 && strings.HasPrefix(fields[1], "GPU use") && strings.HasPrefix(fields[2], "GPU Memory") {
				foundDevice = true
			}
		case strings.HasPrefix(l, "card"):
			rest := strings.TrimPrefix(l, "card")
			fields := strings.Split(rest, ",")
			if len(fields) < 3 {
				continue
			}
			dev, err1 := strconv.Atoi(fields[0])
			gpuPct, err2 := strconv.ParseFloat(fields[1], 64)
			memPct, err3 := strconv.ParseFloat(fields[2], 64)
			if err1 != nil || err2 != nil || err3 != nil || dev < 0 {
				continue
			}
			if len(mappings) < dev+1 {
				grown := make([]deviceUtil, dev+1)
				copy(grown, mappings)
				mappings = grown
			}
			mappings[dev] = deviceUtil{gpuPct: gpuPct, memPct: memPct}
		}
	}
	if foundDevice && len(mappings) > 0 {
		return mappings, nil
	}
	return nil, ErrInconsistentCSV
}

// parseTextConciseCommand parses bare `rocm-smi`'s "Concise Info" table.
func parseTextConciseCommand(rawText string) ([]deviceUtil, error) {
	block := findBlock(rawText, "= Concise Info =")
	if len(block) <= 1 {
		return nil, fmt.Errorf("%w:\n%s", ErrConciseBlockNotFound, rawText)
	}
	hdr := strings.Fields(block[0])
	if len(hdr) < 2 || hdr[len(hdr)-2] != "VRAM%" || hdr[len(hdr)-1] != "GPU%" {
		return nil, fmt.Errorf("%w:\n%s", ErrConciseHeaderUnexpected, rawText)
	}

	var mappings []deviceUtil
	for _, line := range block[1:] {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		dev, _ := strconv.Atoi(fields[0])
		mem := parsePercentField(fields[len(fields)-2])
		gpu := parsePercentField(fields[len(fields)-1])
		if len(mappings) < dev+1 {
			grown := make([]deviceUtil, dev+1)
			copy(grown, mappings)
			mappings = grown
		}
		mappings[dev] = deviceUtil{gpuPct: gpu, memPct: mem}
	}
	return mappings, nil
}

// parsePercentField parses "NN%" into a float, defaulting to 0 and
// logging a warning on any malformation — intentional fail-soft
//.
func parsePercentField(s string) float64 {
	trimmed := strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		slog.Warn("rocm-smi: malformed percent field", "field", s)
		return 0
	}
	return v
}

func (p *AmdProbe) rawPerPidInfo() ([]pidDevices, error) {
	out, err := p.runner.Run(context.Background(), rocmSmiCommand, []string{"--showpidgpus"}, p.timeout)
	if err != nil {
		if subprocess.IsCouldNotStart(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gpu: rocm-smi --showpidgpus: %w", err)
	}
	return parseShowPidGpusCommand(string(out))
}

// parseShowPidGpusCommand parses the "GPUs Indexed by PID" block.
func parseShowPidGpusCommand(rawText string) ([]pidDevices, error) {
	block := findBlock(rawText, "= GPUs Indexed by PID =")
	if len(block) == 1 && strings.HasPrefix(block[0], "No KFD PIDs") {
		return nil, nil
	}
	if len(block) > 1 && len(block)%2 == 0 {
		var mappings []pidDevices
		for i := 0; i < len(block); i += 2 {
			xs := strings.Fields(block[i])
			if len(xs) < 6 || xs[0] != "PID" || xs[2] != "is" || xs[3] != "using" || xs[5] != "DRM" {
				continue
			}
			pid, _ := strconv.Atoi(xs[1])
			numdev, _ := strconv.Atoi(xs[4])
			var devices []int
			if numdev > 0 {
				for _, d := range strings.Fields(block[i+1]) {
					n, _ := strconv.Atoi(d)
					devices = append(devices, n)
				}
			}
			mappings = append(mappings, pidDevices{pid: pid, devices: devices})
		}
		return mappings, nil
	}
	return nil, fmt.Errorf("%w:\n%s", ErrPidGpuBlockNotFound, rawText)
}
