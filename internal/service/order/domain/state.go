// internal/service/order/domain/state.go
package domain

// Status is the order lifecycle state. PENDING is the only non-terminal
// state; COMPLETED, FAILED and CANCELLED accept no further transitions.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether the status accepts no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}
