package compensation

import "time"

type Action string

const (
	ActionVoid   Action = "void"
	ActionRefund Action = "refund"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusDone    OutboxStatus = "done"
)

// PendingCompensation is a durable outbox row recording a reversal that
// exhausted its retry budget. An external reconciliation job consumes these;
// a failed refund is deferred here, never dropped.
type PendingCompensation struct {
	ID               string
	AuthorizationRef string
	Action           Action
	Reason           string
	Status           OutboxStatus
	Attempts         int
	LastError        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
