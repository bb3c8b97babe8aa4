//go:build linux

package cpuinfo

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpcsonar/sonar/pkg/procfs"
)

// twoSocketCpuinfo builds a 16-logical-cpu (2 sockets x 4 cores x 2
// threads) x86_64-shaped /proc/cpuinfo blob.
func twoSocketCpuinfo(modelName string) string {
	var b strings.Builder
	for logical := 0; logical < 16; logical++ {
		socket := logical % 2
		fmt.Fprintf(&b, "processor\t: %d\n", logical)
		fmt.Fprintf(&b, "model name\t: %s\n", modelName)
		fmt.Fprintf(&b, "physical id\t: %d\n", socket)
		fmt.Fprintf(&b, "siblings\t: 8\n")
		fmt.Fprintf(&b, "cpu cores\t: 4\n")
		b.WriteString("\n")
	}
	return b.String()
}

func TestParseX86_64_S6_Topology(t *testing.T) {
	const modelName = "Intel(R) Xeon(R) Gold 6226R CPU @ 2.90GHz"
	fs := procfs.NewFake().WithFile("cpuinfo", twoSocketCpuinfo(modelName))

	info, err := ParseX86_64(fs)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Sockets)
	assert.Equal(t, 4, info.CoresPerSocket)
	assert.Equal(t, 2, info.ThreadsPerCore)
	require.NotEmpty(t, info.Cores)
	assert.Contains(t, info.Cores[0].ModelName, "Xeon")
}

func TestParseX86_64_Incomplete(t *testing.T) {
	fs := procfs.NewFake().WithFile("cpuinfo", "processor\t: 0\n")
	_, err := ParseX86_64(fs)
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestParseAarch64(t *testing.T) {
	content := "processor\t: 0\nCPU architecture: 8\nCPU variant\t: 0x1\n" +
		"processor\t: 1\nCPU architecture: 8\nCPU variant\t: 0x1\n"
	fs := procfs.NewFake().WithFile("cpuinfo", content)

	info, err := ParseAarch64(fs)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Sockets)
	assert.Equal(t, 2, info.CoresPerSocket)
	assert.Equal(t, 1, info.ThreadsPerCore)
	assert.Equal(t, "ARMv8.1", info.Cores[0].ModelName)
}

func TestI32Field_Hex(t *testing.T) {
	v, err := i32Field("cache size\t: 0x1a")
	require.NoError(t, err)
	assert.Equal(t, 26, v)
}

func TestTextField_Missing(t *testing.T) {
	_, err := textField("no colon here")
	assert.Error(t, err)
}
