package workflow

// Trigger represents a reviewer (or automation) action on an invoice.
type Trigger string

const (
	TriggerAccept Trigger = "ACCEPT"
	TriggerCommit Trigger = "COMMIT"
	TriggerReject Trigger = "REJECT"
	TriggerReopen Trigger = "REOPEN"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
