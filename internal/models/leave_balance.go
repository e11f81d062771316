package models

import (
	"errors"
	"fmt"
	"time"
)

// LeaveCategory names one sub-ledger of a LeaveBalance.
type LeaveCategory string

const (
	CategoryCasual      LeaveCategory = "casualLeave"
	CategoryPermissions LeaveCategory = "permissions"
	CategoryRestricted  LeaveCategory = "restrictedLeave"
	CategoryEarned      LeaveCategory = "earnedLeave"
	CategoryMedical     LeaveCategory = "medicalLeave"
	CategoryMaternity   LeaveCategory = "maternityLeave"
	CategoryChildCare   LeaveCategory = "childCareLeave"
)

var categoryLabels = map[LeaveCategory]string{
	CategoryCasual:      "CL",
	CategoryPermissions: "permission",
	CategoryRestricted:  "RH",
	CategoryEarned:      "EL",
	CategoryMedical:     "medical",
	CategoryMaternity:   "maternity",
	CategoryChildCare:   "CCL",
}

// Label is the short name used in operator-facing messages.
func (c LeaveCategory) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

var (
	// ErrUnknownCategory is returned for a category the ledger does not track.
	ErrUnknownCategory = errors.New("unknown leave category")
	// ErrLedgerUnderflow is returned when a credit exceeds what was used.
	ErrLedgerUnderflow = errors.New("credit exceeds used days")
	// ErrNegativeDays is returned for negative debit or credit amounts.
	ErrNegativeDays = errors.New("days must not be negative")
)

// InsufficientBalanceError reports a debit the ledger cannot cover.
type InsufficientBalanceError struct {
	Category  LeaveCategory
	Required  int
	Available int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Insufficient %s balance. Required: %d, Available: %d", e.Category.Label(), e.Required, e.Available)
}

// LeaveLedger is a bounded sub-ledger. Used + Remaining == Total at rest.
type LeaveLedger struct {
	Total     int `json:"total"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

// EarnedLedger is the earned-leave sub-ledger. Used + Remaining == CarriedForward + Earned.
type EarnedLedger struct {
	CarriedForward int `json:"carriedForward"`
	Earned         int `json:"earned"`
	Used           int `json:"used"`
	Remaining      int `json:"remaining"`
}

// MedicalLedger tracks medical days for reporting only.
type MedicalLedger struct {
	Used int `json:"used"`
}

// BalanceDefaults are the allotments of a freshly created year.
type BalanceDefaults struct {
	Casual      int
	Permissions int
	Restricted  int
	ChildCare   int
	Maternity   int
}

// DefaultBalanceDefaults mirrors the establishment's standing allotments.
var DefaultBalanceDefaults = BalanceDefaults{
	Casual:      30,
	Permissions: 5,
	Restricted:  2,
	ChildCare:   730,
	Maternity:   180,
}

// LeaveBalance is one employee's ledger for one calendar year.
type LeaveBalance struct {
	ID              string        `json:"id"`
	EmployeeID      string        `json:"employeeId"`
	Year            int           `json:"year"`
	CasualLeave     LeaveLedger   `json:"casualLeave"`
	Permissions     LeaveLedger   `json:"permissions"`
	RestrictedLeave LeaveLedger   `json:"restrictedLeave"`
	EarnedLeave     EarnedLedger  `json:"earnedLeave"`
	MedicalLeave    MedicalLedger `json:"medicalLeave"`
	MaternityLeave  LeaveLedger   `json:"maternityLeave"`
	ChildCareLeave  LeaveLedger   `json:"childCareLeave"`
	Version         int           `json:"version"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// NewLeaveBalance returns an untouched ledger for employeeID and year.
func NewLeaveBalance(employeeID string, year int, d BalanceDefaults) *LeaveBalance {
	full := func(total int) LeaveLedger { return LeaveLedger{Total: total, Remaining: total} }
	return &LeaveBalance{
		EmployeeID:      employeeID,
		Year:            year,
		CasualLeave:     full(d.Casual),
		Permissions:     full(d.Permissions),
		RestrictedLeave: full(d.Restricted),
		MaternityLeave:  full(d.Maternity),
		ChildCareLeave:  full(d.ChildCare),
	}
}

func (b *LeaveBalance) ledger(c LeaveCategory) *LeaveLedger {
	switch c {
	case CategoryCasual:
		return &b.CasualLeave
	case CategoryPermissions:
		return &b.Permissions
	case CategoryRestricted:
		return &b.RestrictedLeave
	case CategoryMaternity:
		return &b.MaternityLeave
	case CategoryChildCare:
		return &b.ChildCareLeave
	}
	return nil
}

// Remaining returns the remaining days of a bounded category.
func (b *LeaveBalance) Remaining(c LeaveCategory) (int, error) {
	if c == CategoryEarned {
		return b.EarnedLeave.Remaining, nil
	}
	if l := b.ledger(c); l != nil {
		return l.Remaining, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownCategory, c)
}

// Debit moves days from remaining to used. Medical is unbounded.
func (b *LeaveBalance) Debit(c LeaveCategory, days int) error {
	if days < 0 {
		return ErrNegativeDays
	}
	if days == 0 {
		return nil
	}
	switch c {
	case CategoryMedical:
		b.MedicalLeave.Used += days
		return nil
	case CategoryEarned:
		if b.EarnedLeave.Remaining < days {
			return &InsufficientBalanceError{Category: c, Required: days, Available: b.EarnedLeave.Remaining}
		}
		b.EarnedLeave.Used += days
		b.EarnedLeave.Remaining -= days
		return nil
	}
	l := b.ledger(c)
	if l == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, c)
	}
	if l.Remaining < days {
		return &InsufficientBalanceError{Category: c, Required: days, Available: l.Remaining}
	}
	l.Used += days
	l.Remaining -= days
	return nil
}

// Credit reverses an earlier debit.
func (b *LeaveBalance) Credit(c LeaveCategory, days int) error {
	if days < 0 {
		return ErrNegativeDays
	}
	if days == 0 {
		return nil
	}
	switch c {
	case CategoryMedical:
		if b.MedicalLeave.Used < days {
			return fmt.Errorf("%w: %s", ErrLedgerUnderflow, c)
		}
		b.MedicalLeave.Used -= days
		return nil
	case CategoryEarned:
		if b.EarnedLeave.Used < days {
			return fmt.Errorf("%w: %s", ErrLedgerUnderflow, c)
		}
		b.EarnedLeave.Used -= days
		b.EarnedLeave.Remaining += days
		return nil
	}
	l := b.ledger(c)
	if l == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, c)
	}
	if l.Used < days {
		return fmt.Errorf("%w: %s", ErrLedgerUnderflow, c)
	}
	l.Used -= days
	l.Remaining += days
	return nil
}

// ApplyPlan debits every entry of plan, stopping at the first failure. The
// caller owns the balance copy and discards it on error.
func (b *LeaveBalance) ApplyPlan(plan []LeaveDebit) error {
	for _, d := range plan {
		if err := b.Debit(d.Category, d.Days); err != nil {
			return err
		}
	}
	return nil
}

// RevertPlan credits every entry of plan.
func (b *LeaveBalance) RevertPlan(plan []LeaveDebit) error {
	for _, d := range plan {
		if err := b.Credit(d.Category, d.Days); err != nil {
			return err
		}
	}
	return nil
}

// SetAllotment changes the total of a bounded category, keeping used days.
func (b *LeaveBalance) SetAllotment(c LeaveCategory, total int) error {
	if total < 0 {
		return ErrNegativeDays
	}
	l := b.ledger(c)
	if l == nil {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, c)
	}
	if total < l.Used {
		return &InsufficientBalanceError{Category: c, Required: l.Used, Available: total}
	}
	l.Total = total
	l.Remaining = total - l.Used
	return nil
}

// SetEarnedAllotment changes the earned-leave entitlement, keeping used days.
func (b *LeaveBalance) SetEarnedAllotment(carriedForward, earned int) error {
	if carriedForward < 0 || earned < 0 {
		return ErrNegativeDays
	}
	entitlement := carriedForward + earned
	if entitlement < b.EarnedLeave.Used {
		return &InsufficientBalanceError{Category: CategoryEarned, Required: b.EarnedLeave.Used, Available: entitlement}
	}
	b.EarnedLeave.CarriedForward = carriedForward
	b.EarnedLeave.Earned = earned
	b.EarnedLeave.Remaining = entitlement - b.EarnedLeave.Used
	return nil
}

// Conserved reports whether every sub-ledger satisfies its invariant.
func (b *LeaveBalance) Conserved() bool {
	for _, l := range []LeaveLedger{b.CasualLeave, b.Permissions, b.RestrictedLeave, b.MaternityLeave, b.ChildCareLeave} {
		if l.Used+l.Remaining != l.Total || l.Remaining < 0 || l.Used < 0 {
			return false
		}
	}
	e := b.EarnedLeave
	return e.Used+e.Remaining == e.CarriedForward+e.Earned && e.Remaining >= 0 && e.Used >= 0 && b.MedicalLeave.Used >= 0
}
