package domain

import "fmt"

// IllegalTransitionError reports a state-machine move that is not in the
// transition table. It is surfaced to the caller, never retried.
type IllegalTransitionError struct {
	From  TicketStatus
	Event string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition: event %q not allowed from status %s", e.Event, e.From)
}

// PolicyNotFoundError reports that no SLA policy applies to the scope.
type PolicyNotFoundError struct {
	CompanyID    string
	DepartmentID *string
	Priority     TicketPriority
}

func (e *PolicyNotFoundError) Error() string {
	dept := "<none>"
	if e.DepartmentID != nil {
		dept = *e.DepartmentID
	}
	return fmt.Sprintf("no SLA policy for company=%s department=%s priority=%s", e.CompanyID, dept, e.Priority)
}

// ConcurrentModificationError reports a lost version race on a ticket.
// Callers retry the whole transition a bounded number of times.
type ConcurrentModificationError struct {
	TicketID string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification of ticket %s", e.TicketID)
}

// InvalidPolicyConfigurationError reports a policy that must be rejected
// at save time so it never reaches the deadline calculator.
type InvalidPolicyConfigurationError struct {
	Reason string
}

func (e *InvalidPolicyConfigurationError) Error() string {
	return "invalid SLA policy configuration: " + e.Reason
}
