//go:build linux

package assembler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcsonar/sonar/pkg/jobs"
	"github.com/hpcsonar/sonar/pkg/model"
	"github.com/hpcsonar/sonar/pkg/output"
	"github.com/hpcsonar/sonar/pkg/sampler"
)

func TestAssemble_BasicShape(t *testing.T) {
	in := Input{
		Timestamp: "2024-10-31T11:17:00+00:00",
		Memory:    model.Memory{TotalKiB: 16093776, AvailableKiB: 8000000},
		CPUInfo: model.CpuInfo{
			Sockets: 2, CoresPerSocket: 4, ThreadsPerCore: 2,
			Cores: []model.CoreInfo{{ModelName: "Xeon", LogicalIndex: 0, PhysicalIndex: 0}},
		},
		Sample: sampler.Result{
			CPUTotal:   12345,
			PerCPUSecs: []uint64{1, 30, 89, 12},
			Processes: map[int]model.Process{
				4018: {PID: 4018, PPID: 1, Command: "firefox", HasChildren: true},
			},
		},
		JobManager: jobs.None{},
	}

	root := Assemble(in)
	require.NotNil(t, root)

	js := output.EncodeJSON(output.Obj(root))
	assert.True(t, strings.HasPrefix(js, `{"timestamp":"2024-10-31T11:17:00+00:00"`))
	assert.Contains(t, js, `"cpu_total_secs":12345`)
	assert.Contains(t, js, `"pid":4018`)
	assert.Contains(t, js, `"has_children":1`)
	assert.True(t, strings.HasSuffix(js, "\n"))
}

func TestAssemble_NoGpusOmitsTag(t *testing.T) {
	in := Input{JobManager: jobs.None{}}
	root := Assemble(in)
	js := output.EncodeJSON(output.Obj(root))
	assert.NotContains(t, js, `"gpus"`)
}

func TestAssemble_WithGpus(t *testing.T) {
	in := Input{
		JobManager: jobs.None{},
		GPUs: []GpuView{
			{
				Manufacturer: "AMD",
				Cards:        []model.Card{{Model: "MI100", VendorID: "1002", DeviceID: "738c"}},
				Processes: []model.GpuProcess{
					{Device: 0, DeviceValid: true, PID: 28156, UID: 1001, User: "bob", GPUPct: 49.5, MemPct: 28.5, Command: "_noinfo_"},
				},
			},
		},
	}
	root := Assemble(in)
	js := output.EncodeJSON(output.Obj(root))
	assert.Contains(t, js, `"manufacturer":"AMD"`)
	assert.Contains(t, js, `"vendor_id":"1002"`)
	assert.Contains(t, js, `"gpu_processes"`)
}

func TestBuildPerCPUSecs_EmptyNoBase45Flag(t *testing.T) {
	a := buildPerCPUSecs(nil)
	assert.Equal(t, 0, a.Len())
	js := output.EncodeJSON(output.Arr(a))
	assert.Equal(t, "[]\n", js)
}
