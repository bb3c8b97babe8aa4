//go:build linux

// Package cpuinfo implements the CpuInfoParser: turning
// /proc/cpuinfo into socket/core/thread topology. The format differs by
// architecture, so parsing is dispatched on runtime.GOARCH, the
// architecture the binary was compiled for; both parsers are compiled
// into every build and can be called directly.
package cpuinfo

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/hpcsonar/sonar/pkg/model"
	"github.com/hpcsonar/sonar/pkg/procfs"
)

// ErrIncomplete means /proc/cpuinfo was readable but lacked the fields
// this parser needs to compute topology.
var ErrIncomplete = errors.New("cpuinfo: incomplete information in /proc/cpuinfo")

// ErrUnsupportedArch means runtime.GOARCH has no known /proc/cpuinfo shape.
var ErrUnsupportedArch = errors.New("cpuinfo: unsupported architecture")

// Parse reads /proc/cpuinfo through fs and dispatches to the
// architecture-specific parser.
func Parse(fs procfs.Reader) (model.CpuInfo, error) {
	switch runtime.GOARCH {
	case "amd64":
		return ParseX86_64(fs)
	case "arm64":
		return ParseAarch64(fs)
	default:
		return model.CpuInfo{}, ErrUnsupportedArch
	}
}

// ParseX86_64 implements the x86_64 /proc/cpuinfo shape: one blob per
// logical processor, "processor" carries the logical index, "physical
// id" the socket, "siblings" the socket thread count, and "cpu cores"
// the per-socket core count. Sockets are counted by first-seen distinct
// physical id.
func ParseX86_64(fs procfs.Reader) (model.CpuInfo, error) {
	content, err := readCpuinfo(fs)
	if err != nil {
		return model.CpuInfo{}, err
	}

	var cores []model.CoreInfo
	physids := make(map[int]struct{})
	var modelName *string
	var physicalIndex, logicalIndex, coresPerSocket, siblings, sockets int

	flush := func() {
		if modelName != nil {
			cores = append(cores, model.CoreInfo{
				ModelName:     *modelName,
				LogicalIndex:  logicalIndex,
				PhysicalIndex: physicalIndex,
			})
		}
	}

	for _, l := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(l, "processor"):
			flush()
			modelName = nil
			logicalIndex, err = i32Field(l)
			if err != nil {
				return model.CpuInfo{}, err
			}
			physicalIndex = 0
		case strings.HasPrefix(l, "model name"):
			s, err := textField(l)
			if err != nil {
				return model.CpuInfo{}, err
			}
			modelName = &s
		case strings.HasPrefix(l, "physical id"):
			physicalIndex, err = i32Field(l)
			if err != nil {
				return model.CpuInfo{}, err
			}
			if _, seen := physids[physicalIndex]; !seen {
				physids[physicalIndex] = struct{}{}
				sockets++
			}
		case strings.HasPrefix(l, "siblings"):
			siblings, err = i32Field(l)
			if err != nil {
				return model.CpuInfo{}, err
			}
		case strings.HasPrefix(l, "cpu cores"):
			coresPerSocket, err = i32Field(l)
			if err != nil {
				return model.CpuInfo{}, err
			}
		}
	}
	flush()

	if len(cores) == 0 || sockets == 0 || siblings == 0 || coresPerSocket == 0 {
		return model.CpuInfo{}, ErrIncomplete
	}

	return model.CpuInfo{
		Sockets:        sockets,
		CoresPerSocket: coresPerSocket,
		ThreadsPerCore: siblings / coresPerSocket,
		Cores:          cores,
	}, nil
}

// ParseAarch64 implements the aarch64 /proc/cpuinfo shape: there is no
// separate physical/socket id, so topology is collapsed to a single
// socket with one core per distinct logical processor, and the model
// name is synthesized from "CPU architecture"/"CPU variant".
func ParseAarch64(fs procfs.Reader) (model.CpuInfo, error) {
	content, err := readCpuinfo(fs)
	if err != nil {
		return model.CpuInfo{}, err
	}

	processors := make(map[int]struct{})
	var modelMajor, modelMinor int
	var seenMajor, seenMinor bool

	for _, l := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(l, "processor"):
			idx, err := i32Field(l)
			if err != nil {
				return model.CpuInfo{}, err
			}
			processors[idx] = struct{}{}
		case strings.HasPrefix(l, "CPU architecture") && !seenMajor:
			modelMajor, err = i32Field(l)
			if err != nil {
				return model.CpuInfo{}, err
			}
			seenMajor = true
		case strings.HasPrefix(l, "CPU variant") && !seenMinor:
			modelMinor, err = i32Field(l)
			if err != nil {
				return model.CpuInfo{}, err
			}
			seenMinor = true
		}
	}

	coresPerSocket := len(processors)
	modelName := fmt.Sprintf("ARMv%d.%d", modelMajor, modelMinor)

	var cores []model.CoreInfo
	for core := 0; core < coresPerSocket; core++ {
		cores = append(cores, model.CoreInfo{
			LogicalIndex:  core,
			PhysicalIndex: 0,
			ModelName:     modelName,
		})
	}

	return model.CpuInfo{
		Sockets:        1,
		CoresPerSocket: coresPerSocket,
		ThreadsPerCore: 1,
		Cores:          cores,
	}, nil
}

func readCpuinfo(fs procfs.Reader) (string, error) {
	b, err := fs.ReadFile("cpuinfo")
	if err != nil {
		return "", fmt.Errorf("cpuinfo: reading /proc/cpuinfo: %w", err)
	}
	return string(b), nil
}

func textField(l string) (string, error) {
	idx := strings.IndexByte(l, ':')
	if idx < 0 {
		return "", fmt.Errorf("cpuinfo: missing text field in %q", l)
	}
	return strings.TrimSpace(l[idx+1:]), nil
}

func i32Field(l string) (int, error) {
	idx := strings.IndexByte(l, ':')
	if idx < 0 {
		return 0, fmt.Errorf("cpuinfo: missing int field in %q", l)
	}
	after := strings.TrimSpace(l[idx+1:])
	if hex, ok := strings.CutPrefix(after, "0x"); ok {
		v, err := strconv.ParseInt(hex, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("cpuinfo: bad int field %q", l)
		}
		return int(v), nil
	}
	v, err := strconv.ParseInt(after, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("cpuinfo: bad int field %q", l)
	}
	return int(v), nil
}
