// Package models provides the data structures used throughout the application.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a statement transaction as reported by the bank.
type TransactionType string

const (
	TypeCredit TransactionType = "CREDIT"
	TypeDebit  TransactionType = "DEBIT"
	TypeOther  TransactionType = "OTHER"
)

// StatementTransaction is one entry parsed from a bank statement export.
// Instances live in memory for the duration of a reconciliation run and are
// never persisted verbatim.
type StatementTransaction struct {
	// Seq is the zero-based position of the entry in the source file.
	// It is the fallback reference when the bank identifier is absent.
	Seq int

	// FitID is the bank-assigned transaction identifier. It may be empty
	// and is not guaranteed unique across statements.
	FitID string

	// PostedAt is the posting date. Only the calendar date is meaningful;
	// any time component from the source file is truncated.
	PostedAt time.Time

	// Amount is signed: negative means a debit from the account.
	Amount decimal.Decimal

	Memo     string
	Type     TransactionType
	Currency string
}

// Ref returns a reference for the transaction that is stable across repeated
// parses of the same file: the bank identifier when present, otherwise the
// file position.
func (t *StatementTransaction) Ref() string {
	if t.FitID != "" {
		return t.FitID
	}
	return fmt.Sprintf("entry-%d", t.Seq)
}

// AbsAmount returns the unsigned magnitude of the transaction amount.
func (t *StatementTransaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// IsDebit returns true for outgoing money.
func (t *StatementTransaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// EntryError describes a single statement entry that could not be parsed.
type EntryError struct {
	Index  int    `yaml:"index"`
	Field  string `yaml:"field"`
	Value  string `yaml:"value"`
	Reason string `yaml:"reason"`
}

func (e EntryError) String() string {
	return fmt.Sprintf("entry %d: %s='%s': %s", e.Index, e.Field, e.Value, e.Reason)
}

// ParseReport summarizes one parse run. Entries that fail to parse are
// counted and described here rather than aborting the whole statement.
type ParseReport struct {
	// Dialect is "sgml" or "xml" depending on how the file was decoded.
	Dialect string

	// Entries is the number of transaction blocks seen in the file.
	Entries int

	// Parsed is the number of entries successfully decoded.
	Parsed int

	// Skipped is the number of entries dropped because of per-entry errors.
	Skipped int

	// Currency is the currency declared by the statement, if any.
	Currency string

	// CurrencyMismatch is set when the declared currency differs from the
	// configured one. The entries are still parsed.
	CurrencyMismatch bool

	Errors []EntryError
}

// AddError records a per-entry failure and counts the entry as skipped.
func (r *ParseReport) AddError(index int, field, value, reason string) {
	r.Skipped++
	r.Errors = append(r.Errors, EntryError{
		Index:  index,
		Field:  field,
		Value:  value,
		Reason: reason,
	})
}
