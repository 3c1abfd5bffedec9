package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/observability"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// ComplianceReport summarizes SLA compliance for a reporting window.
type ComplianceReport struct {
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
	TotalTickets    int       `json:"total_tickets"`
	ViolatedTickets int       `json:"violated_tickets"`
	ComplianceRate  float64   `json:"compliance_rate"`
}

// Reporter receives the daily compliance report.
type Reporter interface {
	SubmitDailyReport(ctx context.Context, report ComplianceReport) error
}

// ReportService builds compliance reports from ticket and tracking data.
type ReportService struct {
	tickets  repository.TicketRepository
	tracking repository.SlaTrackingRepository
	clock    domain.Clock
}

// NewReportService constructs the service.
func NewReportService(tickets repository.TicketRepository, tracking repository.SlaTrackingRepository, clock domain.Clock) *ReportService {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &ReportService{tickets: tickets, tracking: tracking, clock: clock}
}

// BuildDailyReport covers the 24 hours ending now. An empty window
// reports 100% compliance.
func (s *ReportService) BuildDailyReport(ctx context.Context) (ComplianceReport, error) {
	end := s.clock.Now()
	start := end.Add(-24 * time.Hour)

	total, err := s.tickets.CountCreatedBetween(ctx, start, end)
	if err != nil {
		return ComplianceReport{}, err
	}
	violated, err := s.tracking.CountViolatedBetween(ctx, start, end)
	if err != nil {
		return ComplianceReport{}, err
	}

	rate := 100.0
	if total > 0 {
		rate = float64(total-violated) / float64(total) * 100.0
	}
	return ComplianceReport{
		WindowStart:     start,
		WindowEnd:       end,
		TotalTickets:    total,
		ViolatedTickets: violated,
		ComplianceRate:  rate,
	}, nil
}

// LogReporter logs the daily report and mirrors the rate to metrics.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter constructs the default reporter.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) SubmitDailyReport(_ context.Context, report ComplianceReport) error {
	observability.ComplianceRate.Set(report.ComplianceRate)
	r.logger.Info("daily sla compliance report",
		zap.Time("window_start", report.WindowStart),
		zap.Time("window_end", report.WindowEnd),
		zap.Int("total_tickets", report.TotalTickets),
		zap.Int("violated_tickets", report.ViolatedTickets),
		zap.Float64("compliance_rate", report.ComplianceRate),
	)
	return nil
}
