package validation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrPayslipNotFound  = errors.New("payslip not found")
)

// BlockedError is returned when validation issues block a state transition. It carries
// the full result so callers can show every issue at once.
type BlockedError struct {
	Op     string
	Result Result
}

func (e *BlockedError) Error() string {
	codes := make([]string, 0, len(e.Result.Issues))
	for _, is := range e.Result.Issues {
		if is.Severity != SeverityInfo {
			codes = append(codes, is.Code)
		}
	}
	return fmt.Sprintf("%s blocked: %d errors, %d warnings [%s]",
		e.Op, e.Result.Summary.Errors, e.Result.Summary.Warnings, strings.Join(codes, ", "))
}

func (e *BlockedError) Unwrap() error {
	return ErrValidationFailed
}
