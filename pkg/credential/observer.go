package credential

import "time"

// Outcome labels reported to an Observer. Unknown account and bad password
// are told apart here only; callers outside the process never see the split.
const (
	OutcomeSuccess        = "success"
	OutcomeInvalid        = "invalid_input"
	OutcomeDuplicate      = "duplicate"
	OutcomeUnknownAccount = "unknown_account"
	OutcomeBadPassword    = "bad_password"
	OutcomeError          = "error"
)

// Observer receives one call per operation. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRegister(outcome string)
	ObserveAuthenticate(outcome string)
	ObserveLogout(outcome string)
	ObserveHash(d time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveRegister(string)     {}
func (noopObserver) ObserveAuthenticate(string) {}
func (noopObserver) ObserveLogout(string)       {}
func (noopObserver) ObserveHash(time.Duration)  {}
