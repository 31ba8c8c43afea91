package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/soochol/stateflow/internal/metrics"
	"github.com/soochol/stateflow/internal/repository"
)

// Stats is a point-in-time summary of stored definitions and instances.
type Stats struct {
	ActiveDefinitions  int
	Instances          int
	OpenInstances      int
	CompletedInstances int
}

// Reporter periodically logs Stats and publishes them as gauges.
type Reporter struct {
	cron        *cron.Cron
	definitions repository.DefinitionRepository
	instances   repository.InstanceRepository
	metrics     *metrics.Metrics
}

// NewReporter creates a Reporter. m may be nil.
func NewReporter(definitions repository.DefinitionRepository, instances repository.InstanceRepository, m *metrics.Metrics) *Reporter {
	return &Reporter{
		cron:        cron.New(cron.WithSeconds()),
		definitions: definitions,
		instances:   instances,
		metrics:     m,
	}
}

// Start registers the report job on schedule (a 5- or 6-field cron
// expression or a descriptor such as "@every 1m") and starts the cron loop.
func (r *Reporter) Start(schedule string) error {
	sched, err := parseSchedule(schedule)
	if err != nil {
		return fmt.Errorf("parse reporter schedule %q: %w", schedule, err)
	}
	r.cron.Schedule(sched, cron.FuncJob(func() {
		if _, err := r.Report(context.Background()); err != nil {
			slog.Warn("reporter: collect stats failed", "err", err)
		}
	}))
	r.cron.Start()
	slog.Info("reporter: started", "schedule", schedule)
	return nil
}

// Stop halts the cron loop and waits for a running report to finish.
func (r *Reporter) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	slog.Info("reporter: stopped")
}

// Report collects the current Stats, logs them and updates the gauges.
func (r *Reporter) Report(ctx context.Context) (Stats, error) {
	defs, err := r.definitions.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	insts, err := r.instances.List(ctx)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{ActiveDefinitions: len(defs), Instances: len(insts)}
	for _, inst := range insts {
		if inst.IsCompleted {
			st.CompletedInstances++
		} else {
			st.OpenInstances++
		}
	}

	r.metrics.SetTotals(st.ActiveDefinitions, st.OpenInstances)
	slog.Info("reporter: stats",
		"definitions", st.ActiveDefinitions,
		"instances", st.Instances,
		"open", st.OpenInstances,
		"completed", st.CompletedInstances)
	return st, nil
}

// parseSchedule accepts 6-field (with seconds) and standard 5-field
// expressions plus descriptors.
func parseSchedule(expr string) (cron.Schedule, error) {
	parser6 := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser6.Parse(expr)
	if err == nil {
		return sched, nil
	}
	parser5 := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser5.Parse(expr)
}
