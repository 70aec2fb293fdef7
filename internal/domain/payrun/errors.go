package payrun

import "errors"

var (
	ErrRunNotFound         = errors.New("payroll run not found")
	ErrRunAlreadyExists    = errors.New("an active payroll run already exists for this period")
	ErrPeriodNotFound      = errors.New("payroll period not found")
	ErrPeriodAlreadyPaid   = errors.New("payroll period already paid")
	ErrPayslipNotFound     = errors.New("payslip not found")
	ErrInvalidTransition   = errors.New("invalid payroll run status transition")
	ErrInvalidLine         = errors.New("invalid payslip line")
	ErrNoEligibleEmployees = errors.New("no eligible employees for this period")
	ErrWageComputation     = errors.New("wage computation failed")
	ErrAdjustmentLinked    = errors.New("adjustment already linked to another run")
	ErrInvalidFilter       = errors.New("invalid employee filter")
)
