//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hpcsonar/sonar/pkg/assembler"
	"github.com/hpcsonar/sonar/pkg/cpuinfo"
	"github.com/hpcsonar/sonar/pkg/gpu"
	"github.com/hpcsonar/sonar/pkg/jobs"
	"github.com/hpcsonar/sonar/pkg/model"
	"github.com/hpcsonar/sonar/pkg/output"
	"github.com/hpcsonar/sonar/pkg/procfs"
	"github.com/hpcsonar/sonar/pkg/sampler"
	"github.com/hpcsonar/sonar/pkg/subprocess"
	"github.com/hpcsonar/sonar/pkg/sysapi"
	"github.com/hpcsonar/sonar/pkg/timestamp"
)

type opts struct {
	format           string
	timeoutPS        int
	timeoutGPU       int
	includeCardState bool
	output           string
	csvSeparator     string
	jobManager       string
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "sonar",
		Short: "Node-level telemetry agent for HPC/ML compute clusters",
		Long: `sonar samples one node's CPU topology, memory, process table, and
GPU attribution, joins each process to a batch-scheduler job id where
configured, and emits a single JSON or CSV snapshot.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), o)
		},
	}

	root.Flags().StringVar(&o.format, "format", "json", "output encoding: json or csv")
	root.Flags().IntVar(&o.timeoutPS, "timeout-ps", 2, "process-sampler subprocess timeout, in seconds")
	root.Flags().IntVar(&o.timeoutGPU, "timeout-gpu", 5, "vendor GPU tool timeout, in seconds")
	root.Flags().BoolVar(&o.includeCardState, "include-card-state", false, "include the card_state section in GPU output")
	root.Flags().StringVar(&o.output, "output", "", "write the snapshot to this path instead of stdout")
	root.Flags().StringVar(&o.csvSeparator, "csv-separator", ",", "array element separator for CSV output")
	root.Flags().StringVar(&o.jobManager, "job-manager", "none", "job manager to join process ids against: none or slurm")

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, o opts) error {
	if o.format != "json" && o.format != "csv" {
		return fmt.Errorf("--format must be json or csv, got %q", o.format)
	}
	var jm jobs.Manager
	switch o.jobManager {
	case "none":
		jm = jobs.None{}
	case "slurm":
		jm = jobs.NewSlurm(procfs.New())
	default:
		return fmt.Errorf("--job-manager must be none or slurm, got %q", o.jobManager)
	}

	sys := sysapi.New()
	fs := procfs.New()
	runner := subprocess.New()

	memtotalKiB, err := sampler.MemTotalKiB(fs)
	if err != nil {
		return fmt.Errorf("reading memory total: %w", err)
	}
	memory := memorySnapshot(fs, memtotalKiB)

	sampleResult, err := sampler.Sample(sys, fs, memtotalKiB)
	if err != nil {
		if !errors.Is(err, procfs.ErrUnavailable) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("sampling processes: %w", err)
		}
		slog.Warn("procfs unavailable, falling back to ps", "err", err)

		psCtx, cancel := context.WithTimeout(ctx, time.Duration(o.timeoutPS)*time.Second)
		sampleResult, err = sampler.PSFallbackSample(psCtx, runner)
		cancel()
		if err != nil {
			return fmt.Errorf("sampling processes: %w", err)
		}
	}

	cpuInfo, err := cpuinfo.Parse(fs)
	if err != nil {
		return fmt.Errorf("reading cpu topology: %w", err)
	}

	gpuTimeout := time.Duration(o.timeoutGPU) * time.Second
	gpuViews := probeGPUs(runner, gpuTimeout, sampleResult)

	in := assembler.Input{
		Timestamp:        timestamp.NowISO8601(time.Now()),
		Memory:           memory,
		CPUInfo:          cpuInfo,
		Sample:           sampleResult,
		GPUs:             gpuViews,
		JobManager:       jm,
		IncludeCardState: o.includeCardState,
	}
	root := assembler.Assemble(in)

	var encoded string
	switch o.format {
	case "json":
		encoded = output.EncodeJSON(output.Obj(root))
	case "csv":
		if o.csvSeparator != "" && o.csvSeparator != "," {
			root.SetCSVSeparatorRecursive(o.csvSeparator)
		}
		encoded = output.EncodeCSV(output.Obj(root))
	}

	if err := writeSnapshot(o.output, encoded); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	slog.Info("snapshot emitted",
		"processes", len(sampleResult.Processes),
		"memory_total", humanize.IBytes(memory.TotalKiB*1024),
	)
	return nil
}

func memorySnapshot(fs procfs.Reader, totalKiB uint64) model.Memory {
	mem := model.Memory{TotalKiB: totalKiB}
	if b, err := fs.ReadFile("meminfo"); err == nil {
		if parsed, err := sampler.ParseMeminfo(string(b)); err == nil {
			mem.AvailableKiB = parsed.AvailableKiB
		}
	}
	return mem
}

func probeGPUs(runner subprocess.Runner, timeout time.Duration, sample sampler.Result) []assembler.GpuView {
	lookup := func(pid int) (string, uint32, bool) {
		p, ok := sample.Processes[pid]
		if !ok {
			return "", 0, false
		}
		return p.User, p.UID, true
	}

	var views []assembler.GpuView
	if amd, ok := gpu.ProbeAmd(runner, timeout); ok {
		views = append(views, buildGPUView(amd, lookup))
	}
	if nv, ok := gpu.ProbeNvidia(); ok {
		views = append(views, buildGPUView(nv, lookup))
		nv.Shutdown()
	}
	return views
}

func buildGPUView(p gpu.Probe, lookup gpu.UserLookup) assembler.GpuView {
	v := assembler.GpuView{Manufacturer: p.Manufacturer()}
	if cards, err := p.Cards(); err != nil {
		slog.Warn("gpu card inventory failed", "manufacturer", v.Manufacturer, "err", err)
	} else {
		if v.Manufacturer == "AMD" {
			cards = gpu.EnrichAMDCards(cards)
		}
		v.Cards = cards
	}
	if procs, err := p.ProcessUtilization(lookup); err != nil {
		slog.Warn("gpu process utilization failed", "manufacturer", v.Manufacturer, "err", err)
	} else {
		v.Processes = procs
	}
	if states, err := p.CardState(); err != nil {
		slog.Warn("gpu card state failed", "manufacturer", v.Manufacturer, "err", err)
	} else {
		v.CardState = states
	}
	return v
}

func writeSnapshot(path, encoded string) error {
	if path == "" {
		_, err := fmt.Print(encoded)
		return err
	}
	return os.WriteFile(path, []byte(encoded), 0o644)
}
