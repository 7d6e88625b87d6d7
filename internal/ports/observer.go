package ports

import "time"

type SessionObserver interface {
	InitAttempt(err error)
	RetryScheduled(delay time.Duration)
	ClientReady()
}

type PaymentObserver interface {
	UserOperationSubmitted(status string)
}

type NopObserver struct{}

func (NopObserver) InitAttempt(error)             {}
func (NopObserver) RetryScheduled(time.Duration)  {}
func (NopObserver) ClientReady()                  {}
func (NopObserver) UserOperationSubmitted(string) {}
