// Package reconerror defines the error taxonomy shared across the
// reconciliation pipeline. Callers are expected to use errors.As to
// distinguish recoverable conditions from fatal ones.
package reconerror

import "fmt"

// MalformedStatementError indicates that a statement file has no recognizable
// transaction list container, or is otherwise unreadable as a whole.
// Per-entry problems are not reported this way; they go into the ParseReport.
type MalformedStatementError struct {
	Reason  string
	Snippet string // optional content snippet for debugging
}

func (e *MalformedStatementError) Error() string {
	if e.Snippet != "" {
		return fmt.Sprintf("malformed statement: %s. Content snippet: '%s'", e.Reason, e.Snippet)
	}
	return fmt.Sprintf("malformed statement: %s", e.Reason)
}

// LookupFailure indicates that candidate retrieval failed for a single
// statement transaction. The batch continues; the transaction is marked
// unmatched with a lookup failure outcome.
type LookupFailure struct {
	StatementRef string
	Err          error
}

func (e *LookupFailure) Error() string {
	return fmt.Sprintf("candidate lookup failed for %s: %v", e.StatementRef, e.Err)
}

func (e *LookupFailure) Unwrap() error {
	return e.Err
}

// AlreadyReconciledError is a business conflict: the ledger record targeted by
// a confirmation is no longer in a confirmable status. Not retryable.
type AlreadyReconciledError struct {
	LedgerID string
	Status   string
}

func (e *AlreadyReconciledError) Error() string {
	return fmt.Sprintf("ledger record %s is already reconciled (status %s)", e.LedgerID, e.Status)
}

// PersistenceFailure is fatal to the enclosing transaction scope. The scope is
// rolled back and the whole run may be retried, since proposal is idempotent.
type PersistenceFailure struct {
	Op  string
	Err error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceFailure) Unwrap() error {
	return e.Err
}

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}
