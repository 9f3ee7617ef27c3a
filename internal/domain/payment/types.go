package payment

// Status transitions are monotonic: pending may become success or
// failed, and terminal statuses are never overwritten. refunded is an
// admin-only transition out of success, outside the reconciliation path.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusRefunded:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// Outcome is a provider-reported result, normalized by the gateway
// adapter before it reaches reconciliation.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

func (o Outcome) Status() Status {
	if o == OutcomeSuccess {
		return StatusSuccess
	}
	return StatusFailed
}
