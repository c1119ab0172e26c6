package models

// CandidateStatus is the lifecycle state of a match candidate. A candidate
// becomes immutable once confirmed or rejected.
type CandidateStatus string

const (
	CandidateProposed  CandidateStatus = "PROPOSED"
	CandidateConfirmed CandidateStatus = "CONFIRMED"
	CandidateRejected  CandidateStatus = "REJECTED"
)

// Names of the matching rules that can fire for a candidate.
const (
	CriterionAmountExact = "amount:exact"
	CriterionAmountClose = "amount:close"
	CriterionDateExact   = "date:exact"
	CriterionDateNear    = "date:near"
	CriterionDescOverlap = "description:overlap"
)

// MatchCandidate is a proposed pairing between a statement transaction and a
// ledger record. The confidence score is deterministic for the same inputs
// and rule configuration.
type MatchCandidate struct {
	ID           string          `yaml:"id"`
	RunID        string          `yaml:"run_id"`
	StatementRef string          `yaml:"statement_ref"`
	LedgerID     string          `yaml:"ledger_id"`
	Score        float64         `yaml:"score"`
	Criteria     []string        `yaml:"criteria"`
	Status       CandidateStatus `yaml:"status"`

	// Ambiguous is set when the candidate tied at the top score with at
	// least one other candidate for the same statement transaction. Tied
	// candidates are never auto-selected; a human must choose.
	Ambiguous bool `yaml:"ambiguous"`

	// Rank orders candidates per ledger record: 0 is the primary proposal,
	// higher ranks are lower-scoring alternatives kept for manual override.
	Rank int `yaml:"rank"`

	// Memo is carried from the statement transaction for display.
	Memo string `yaml:"memo"`
}

// Pending reports whether the candidate can still be confirmed or rejected.
func (c *MatchCandidate) Pending() bool {
	return c.Status == CandidateProposed
}
