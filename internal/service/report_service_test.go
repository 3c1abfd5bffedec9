package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-engine/internal/domain"
)

func TestDailyReportEmptyWindowIsFullyCompliant(t *testing.T) {
	env := newTestEnv(t)
	reports := NewReportService(env.ticketRepo, env.trackRepo, env.clock)

	report, err := reports.BuildDailyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalTickets)
	assert.Equal(t, 100.0, report.ComplianceRate)
}

func TestDailyReportCountsViolations(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	reports := NewReportService(env.ticketRepo, env.trackRepo, env.clock)

	var violated []*domain.Ticket
	for i := 0; i < 10; i++ {
		ticket := env.createTicket(t, domain.TicketPriorityNormal)
		if i < 3 {
			violated = append(violated, ticket)
		}
	}
	past := env.clock.Now().Add(5 * time.Hour)
	for _, ticket := range violated {
		newly, err := env.slaSvc.MarkViolated(context.Background(), ticket.ID, past)
		require.NoError(t, err)
		require.True(t, newly)
	}

	env.clock.Advance(2 * time.Hour)
	report, err := reports.BuildDailyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, report.TotalTickets)
	assert.Equal(t, 3, report.ViolatedTickets)
	assert.InDelta(t, 70.0, report.ComplianceRate, 0.001)
}

func TestDailyReportIgnoresTicketsOutsideWindow(t *testing.T) {
	env := newTestEnv(t)
	env.addPolicy(t, domain.TicketPriorityNormal, 4, 48)
	reports := NewReportService(env.ticketRepo, env.trackRepo, env.clock)

	env.createTicket(t, domain.TicketPriorityNormal)
	env.clock.Advance(48 * time.Hour)
	env.createTicket(t, domain.TicketPriorityNormal)

	report, err := reports.BuildDailyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalTickets)
}
