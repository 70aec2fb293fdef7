package memory

import "errors"

var errDuplicatePayslip = errors.New("payslip already exists for employee in run")
