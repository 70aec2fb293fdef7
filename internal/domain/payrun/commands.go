package payrun

import "github.com/cmlabs-hris/payroll-engine-go/internal/domain/debt"

// Command is one intended mutation recorded while a run is computed. The set is closed;
// a Batch is committed in a single transaction after every employee is computed.
type Command interface {
	command()
}

type CreateRunCmd struct {
	Run Run
}

type CreatePayslipCmd struct {
	Payslip Payslip
}

type CreateDebtCmd struct {
	Debt        debt.Debt
	Transaction debt.Transaction
}

// ApplyDebtTransactionCmd writes a settled debt guarded by its previous version.
type ApplyDebtTransactionCmd struct {
	Debt            debt.Debt
	ExpectedVersion int
	Transaction     debt.Transaction
}

type LinkAdjustmentsCmd struct {
	RunID         string
	AdjustmentIDs []string
}

func (CreateRunCmd) command()            {}
func (CreatePayslipCmd) command()        {}
func (CreateDebtCmd) command()           {}
func (ApplyDebtTransactionCmd) command() {}
func (LinkAdjustmentsCmd) command()      {}

// Batch is the ordered command list of one run creation.
type Batch struct {
	Commands []Command
}

func (b *Batch) Add(cmds ...Command) {
	b.Commands = append(b.Commands, cmds...)
}

// Payslips returns the payslips the batch would create, in order.
func (b Batch) Payslips() []Payslip {
	var out []Payslip
	for _, c := range b.Commands {
		if p, ok := c.(CreatePayslipCmd); ok {
			out = append(out, p.Payslip)
		}
	}
	return out
}

// NewDebts returns the debts the batch would open.
func (b Batch) NewDebts() []debt.Debt {
	var out []debt.Debt
	for _, c := range b.Commands {
		if cd, ok := c.(CreateDebtCmd); ok {
			out = append(out, cd.Debt)
		}
	}
	return out
}
