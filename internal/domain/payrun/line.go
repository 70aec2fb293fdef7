package payrun

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Sign is EARNING or DEDUCTION.
type Sign uint8

const (
	Earning Sign = iota + 1
	Deduction
)

func (s Sign) String() string {
	switch s {
	case Earning:
		return "EARNING"
	case Deduction:
		return "DEDUCTION"
	}
	return fmt.Sprintf("Sign(%d)", uint8(s))
}

func ParseSign(s string) (Sign, error) {
	switch s {
	case "EARNING":
		return Earning, nil
	case "DEDUCTION":
		return Deduction, nil
	}
	return 0, fmt.Errorf("%w: sign %q", ErrInvalidLine, s)
}

func (s Sign) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Sign) UnmarshalText(b []byte) error {
	v, err := ParseSign(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Source says where a line came from. The set is closed; ledger classification and
// cap trimming switch over every value.
type Source uint8

const (
	SourceStructure Source = iota + 1
	SourceStatutory
	SourceSmartPolicy
	SourceManual
	SourceAdjustment
	SourceDebtRepayment
	sourceCount
)

var sourceNames = [...]string{
	SourceStructure:     "STRUCTURE",
	SourceStatutory:     "STATUTORY",
	SourceSmartPolicy:   "SMART_POLICY",
	SourceManual:        "MANUAL",
	SourceAdjustment:    "ADJUSTMENT",
	SourceDebtRepayment: "DEBT_REPAYMENT",
}

// Sources lists every source in declaration order.
func Sources() []Source {
	out := make([]Source, 0, sourceCount-1)
	for s := SourceStructure; s < sourceCount; s++ {
		out = append(out, s)
	}
	return out
}

func (s Source) Valid() bool { return s >= SourceStructure && s < sourceCount }

func (s Source) String() string {
	if s.Valid() {
		return sourceNames[s]
	}
	return fmt.Sprintf("Source(%d)", uint8(s))
}

// ParseSource accepts the canonical names plus the hyphenated SMART-POLICY spelling.
func ParseSource(v string) (Source, error) {
	if v == "SMART-POLICY" {
		return SourceSmartPolicy, nil
	}
	for s := SourceStructure; s < sourceCount; s++ {
		if sourceNames[s] == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: source %q", ErrInvalidLine, v)
}

func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Source) UnmarshalText(b []byte) error {
	v, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// trimPriority orders deduction sources for cap trimming: lower is trimmed first.
func (s Source) trimPriority() int {
	switch s {
	case SourceManual:
		return 0
	case SourceAdjustment:
		return 1
	case SourceSmartPolicy:
		return 2
	case SourceStructure:
		return 3
	case SourceDebtRepayment:
		return 4
	case SourceStatutory:
		return 5
	}
	return 6
}

// Line is one earning or deduction on a payslip. Amount is always non-negative.
type Line struct {
	ID            string
	PayslipID     string
	ComponentID   *string
	ComponentCode string
	Description   string
	Amount        decimal.Decimal
	Sign          Sign
	Source        Source
	CostCenterID  *string
	Units         *decimal.Decimal
	Rate          *decimal.Decimal
	Order         int
}

func (l Line) IsEarning() bool   { return l.Sign == Earning }
func (l Line) IsDeduction() bool { return l.Sign == Deduction }

// SumLines returns the earning and deduction totals of lines.
func SumLines(lines []Line) (gross, deductions decimal.Decimal) {
	gross, deductions = decimal.Zero, decimal.Zero
	for _, l := range lines {
		switch l.Sign {
		case Earning:
			gross = gross.Add(l.Amount)
		case Deduction:
			deductions = deductions.Add(l.Amount)
		}
	}
	return gross, deductions
}

// TrimDeductions reduces deduction lines until their sum is at most limit. Lines are
// trimmed in ascending trimPriority and, within a priority, from the last line up, so
// statutory withholding is touched last. Lines trimmed to zero are removed. It returns
// the new lines and the amount removed.
func TrimDeductions(lines []Line, limit decimal.Decimal) ([]Line, decimal.Decimal) {
	_, ded := SumLines(lines)
	excess := ded.Sub(limit)
	if !excess.IsPositive() {
		return lines, decimal.Zero
	}

	out := make([]Line, len(lines))
	copy(out, lines)

	order := make([]int, 0, len(out))
	for i := range out {
		if out[i].IsDeduction() {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		pa, pb := out[order[a]].Source.trimPriority(), out[order[b]].Source.trimPriority()
		if pa != pb {
			return pa < pb
		}
		return order[a] > order[b]
	})

	removed := decimal.Zero
	for _, i := range order {
		if !excess.IsPositive() {
			break
		}
		cut := decimal.Min(out[i].Amount, excess)
		out[i].Amount = out[i].Amount.Sub(cut)
		excess = excess.Sub(cut)
		removed = removed.Add(cut)
	}

	kept := out[:0]
	for _, l := range out {
		if l.IsDeduction() && l.Amount.IsZero() {
			continue
		}
		kept = append(kept, l)
	}
	return kept, removed
}
