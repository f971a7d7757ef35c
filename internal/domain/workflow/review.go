package workflow

// NewReviewMachine builds the review lifecycle machine for one invoice.
//
//	PENDING   --ACCEPT--> ACCEPTED --COMMIT--> COMMITTED
//	PENDING   --REJECT--> REJECTED
//	ACCEPTED  --REJECT--> REJECTED
//	COMMITTED --REOPEN--> ACCEPTED   (resubmission replaces the gold record)
//
// The guard on ACCEPT is supplied by the caller because item/total presence
// lives outside the machine.
func NewReviewMachine(initial State, acceptGuard GuardFunc) StateMachine {
	builder := NewBuilder()

	builder.Configure(StatePending).
		PermitIf(TriggerAccept, StateAccepted, acceptGuard).
		Permit(TriggerReject, StateRejected)

	builder.Configure(StateAccepted).
		Permit(TriggerCommit, StateCommitted).
		Permit(TriggerReject, StateRejected)

	builder.Configure(StateCommitted).
		Permit(TriggerReopen, StateAccepted)

	return builder.Build(initial)
}
