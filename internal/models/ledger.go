package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tells whether a ledger record represents money coming in or
// going out. Ledger amounts are stored unsigned with the kind alongside.
type MovementKind string

const (
	KindInflow  MovementKind = "INFLOW"
	KindOutflow MovementKind = "OUTFLOW"
)

// ReconStatus is the reconciliation status of a ledger record.
type ReconStatus string

const (
	StatusUnreconciled ReconStatus = "UNRECONCILED"
	StatusSuggested    ReconStatus = "SUGGESTED"
	StatusConfirmed    ReconStatus = "CONFIRMED"
)

// Date is a calendar date with CSV marshalling in ISO form (YYYY-MM-DD).
// Only the date part is significant; the time component is always midnight UTC.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// MarshalCSV implements the gocsv field marshaller.
func (d Date) MarshalCSV() (string, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.Format(dateLayout), nil
}

// UnmarshalCSV implements the gocsv field unmarshaller.
func (d *Date) UnmarshalCSV(value string) error {
	if value == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalYAML stores the date in ISO form in the state file.
func (d Date) MarshalYAML() (interface{}, error) {
	if d.IsZero() {
		return "", nil
	}
	return d.Format(dateLayout), nil
}

// UnmarshalYAML reads an ISO date from the state file.
func (d *Date) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var value string
	if err := unmarshal(&value); err != nil {
		return err
	}
	return d.UnmarshalCSV(value)
}

// LedgerRecord is an internally recorded financial movement eligible for
// reconciliation. The identifier is unique and stable; the amount is the
// unsigned magnitude with Kind carrying the direction.
type LedgerRecord struct {
	ID          string          `csv:"ID" yaml:"id"`
	Date        Date            `csv:"Date" yaml:"date"`
	Amount      decimal.Decimal `csv:"Amount" yaml:"amount"`
	Kind        MovementKind    `csv:"Kind" yaml:"kind"`
	Description string          `csv:"Description" yaml:"description"`
	Status      ReconStatus     `csv:"Status" yaml:"status"`
}

// SignedAmount returns the amount with the sign implied by the movement kind:
// negative for outflows, positive for inflows.
func (r *LedgerRecord) SignedAmount() decimal.Decimal {
	if r.Kind == KindOutflow {
		return r.Amount.Neg()
	}
	return r.Amount
}

// Matchable reports whether the record can still receive match proposals.
// Confirmed records are settled; suggested ones stay matchable so re-running
// the same statement can re-propose its pending pairing.
func (r *LedgerRecord) Matchable() bool {
	return r.Status != StatusConfirmed
}
