//go:build linux

package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hpcsonar/sonar/pkg/model"
	"github.com/hpcsonar/sonar/pkg/procfs"
)

func TestSlurm_JobIDFromPID(t *testing.T) {
	fs := procfs.NewFake().
		WithFile("4018/cgroup", "0::/slurm/uid_1000/job_98765/step_0\n")
	s := NewSlurm(fs)
	assert.Equal(t, 98765, s.JobIDFromPID(4018, nil))
}

func TestSlurm_JobIDFromPID_NoMatch(t *testing.T) {
	fs := procfs.NewFake().WithFile("4018/cgroup", "0::/user.slice\n")
	s := NewSlurm(fs)
	assert.Equal(t, 0, s.JobIDFromPID(4018, nil))
}

func TestSlurm_JobIDFromPID_Missing(t *testing.T) {
	fs := procfs.NewFake()
	s := NewSlurm(fs)
	assert.Equal(t, 0, s.JobIDFromPID(4018, nil))
}

func TestSlurm_NeedProcessTree(t *testing.T) {
	assert.False(t, NewSlurm(procfs.NewFake()).NeedProcessTree())
}

func TestNone(t *testing.T) {
	var n None
	assert.Equal(t, 0, n.JobIDFromPID(1, map[int]model.Process{}))
	assert.False(t, n.NeedProcessTree())
}
