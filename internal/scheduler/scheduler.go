package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/service"
)

// maxConsecutiveFailures stops the scheduler after this many back-to-back
// failed runs of the same job.
const maxConsecutiveFailures = 3

// AlertFunc is invoked when a job crosses the consecutive-failure limit.
type AlertFunc func(job string, err error)

// Scheduler runs the periodic SLA jobs: the violation sweep every 15
// minutes, the risk sweep hourly and the compliance report daily.
type Scheduler struct {
	sweeper  *Sweeper
	reports  *service.ReportService
	reporter service.Reporter
	logger   *zap.Logger
	alert    AlertFunc

	violationSpec string
	riskSpec      string
	reportSpec    string
	stopTimeout   time.Duration
	jobTimeout    time.Duration

	cron *cron.Cron

	mu       sync.Mutex
	failures map[string]int
	stopped  bool
}

// Options configures the scheduler.
type Options struct {
	ViolationSweepSpec string
	RiskSweepSpec      string
	DailyReportSpec    string
	Timezone           *time.Location
	StopTimeout        time.Duration
	JobTimeout         time.Duration
	Alert              AlertFunc
}

// New constructs a scheduler. Zero-valued options take the defaults.
func New(sweeper *Sweeper, reports *service.ReportService, reporter service.Reporter, logger *zap.Logger, opts Options) *Scheduler {
	if opts.ViolationSweepSpec == "" {
		opts.ViolationSweepSpec = "*/15 * * * *"
	}
	if opts.RiskSweepSpec == "" {
		opts.RiskSweepSpec = "0 * * * *"
	}
	if opts.DailyReportSpec == "" {
		opts.DailyReportSpec = "0 6 * * *"
	}
	if opts.Timezone == nil {
		opts.Timezone = time.UTC
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 30 * time.Second
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 10 * time.Minute
	}
	alert := opts.Alert
	if alert == nil {
		alert = func(job string, err error) {
			logger.Error("scheduler job disabled after repeated failures",
				zap.String("job", job),
				zap.Error(err),
			)
		}
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	return &Scheduler{
		sweeper:       sweeper,
		reports:       reports,
		reporter:      reporter,
		logger:        logger,
		alert:         alert,
		violationSpec: opts.ViolationSweepSpec,
		riskSpec:      opts.RiskSweepSpec,
		reportSpec:    opts.DailyReportSpec,
		stopTimeout:   opts.StopTimeout,
		jobTimeout:    opts.JobTimeout,
		cron: cron.New(
			cron.WithLocation(opts.Timezone),
			cron.WithChain(
				cron.SkipIfStillRunning(cronLogger),
				cron.Recover(cronLogger),
			),
		),
		failures: make(map[string]int),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"violation_sweep", s.violationSpec, s.RunViolationSweep},
		{"risk_sweep", s.riskSpec, s.RunRiskSweep},
		{"daily_report", s.reportSpec, s.RunDailyReport},
	}
	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() { s.runJob(job.name, job.run) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("violation_sweep", s.violationSpec),
		zap.String("risk_sweep", s.riskSpec),
		zap.String("daily_report", s.reportSpec),
	)
	return nil
}

// Stop halts scheduling and waits for in-flight jobs to drain, up to the
// stop timeout.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("scheduler stopped")
	case <-time.After(s.stopTimeout):
		s.logger.Warn("scheduler stop timed out with jobs still running")
	}
}

// RunViolationSweep escalates newly violated tickets. Exported so the
// on-demand check endpoint can trigger it between scheduled runs.
func (s *Scheduler) RunViolationSweep(ctx context.Context) error {
	escalated, err := s.sweeper.SweepViolations(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("violation sweep complete", zap.Int("escalated", escalated))
	return nil
}

// RunRiskSweep emits at-risk notifications.
func (s *Scheduler) RunRiskSweep(ctx context.Context) error {
	notified, err := s.sweeper.SweepRisks(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("risk sweep complete", zap.Int("notified", notified))
	return nil
}

// RunDailyReport builds and submits the compliance report.
func (s *Scheduler) RunDailyReport(ctx context.Context) error {
	report, err := s.reports.BuildDailyReport(ctx)
	if err != nil {
		return err
	}
	return s.reporter.SubmitDailyReport(ctx, report)
}

// runJob wraps a job with a per-run timeout and failure accounting. An
// invocation still running when its deadline passes is cancelled; a run
// still in flight at the next tick is skipped by the cron chain. Three
// consecutive failures of the same job stop the scheduler and raise the
// alert; a success resets the counter.
func (s *Scheduler) runJob(name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	err := run(ctx)
	if err == nil {
		observability.SweepRuns.WithLabelValues(name, "ok").Inc()
		s.mu.Lock()
		s.failures[name] = 0
		s.mu.Unlock()
		return
	}

	observability.SweepRuns.WithLabelValues(name, "error").Inc()
	s.logger.Error("scheduler job failed", zap.String("job", name), zap.Error(err))

	s.mu.Lock()
	s.failures[name]++
	count := s.failures[name]
	s.mu.Unlock()

	if count >= maxConsecutiveFailures {
		s.alert(name, err)
		go s.Stop()
	}
}
