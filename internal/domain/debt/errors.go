package debt

import "errors"

var (
	ErrDebtNotFound           = errors.New("debt not found")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrDebtClosed             = errors.New("debt is already settled or written off")
	ErrDebtNotSuspended       = errors.New("debt is not suspended")
	ErrDebtAlreadySuspended   = errors.New("debt is already suspended")
	ErrConcurrentModification = errors.New("debt was modified concurrently")
	ErrBrokenChain            = errors.New("debt transaction chain does not reconcile")
)
