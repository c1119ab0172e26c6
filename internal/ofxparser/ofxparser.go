// Package ofxparser decodes OFX-style bank statement exports into normalized
// statement transactions. The format comes in two flavors: the legacy SGML
// dialect, where closing tags are frequently omitted, and the XML dialect
// used by newer exports. Both produce the same flat record per transaction
// block; unknown tags are ignored rather than rejected.
package ofxparser

import (
	"bytes"
	"io"
	"strings"

	"bankrecon/internal/dateutils"
	"bankrecon/internal/logging"
	"bankrecon/internal/models"
	"bankrecon/internal/reconerror"

	"github.com/shopspring/decimal"
)

// Options controls statement decoding.
type Options struct {
	// DateFormat is the Go layout for DTPOSTED values.
	DateFormat string
	// Currency, when set, is checked against the statement's CURDEF.
	// A mismatch is reported, not fatal.
	Currency string
	// StrictValidation requires a BANKTRANLIST container. The application
	// configuration enables it by default; disabling it lets free-floating
	// STMTTRN blocks through.
	StrictValidation bool
}

// Parser decodes statement exports. It is a pure transformation of bytes to
// records plus a report: no filesystem or network access.
type Parser struct {
	opts   Options
	logger logging.Logger
}

// New creates a statement parser with the given options.
func New(opts Options, logger logging.Logger) *Parser {
	if opts.DateFormat == "" {
		opts.DateFormat = dateutils.LayoutOFX
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Parser{opts: opts, logger: logger}
}

// Parse reads a statement export and returns its transactions in file order
// together with a report of per-entry failures. Each call yields a fresh
// slice. A missing transaction list container is fatal; a bad entry is
// skipped and counted in the report.
func (p *Parser) Parse(r io.Reader) ([]models.StatementTransaction, *models.ParseReport, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, &reconerror.MalformedStatementError{Reason: "unreadable input: " + err.Error()}
	}

	report := &models.ParseReport{}

	var entries []entry
	if isXMLDialect(raw) {
		report.Dialect = "xml"
		entries, err = p.parseXML(raw, report)
	} else {
		report.Dialect = "sgml"
		entries, err = p.parseSGML(raw, report)
	}
	if err != nil {
		return nil, nil, err
	}

	p.checkCurrency(report)

	txns := make([]models.StatementTransaction, 0, len(entries))
	for i, e := range entries {
		report.Entries++
		txn, ok := p.buildTransaction(i, e, report)
		if !ok {
			continue
		}
		report.Parsed++
		txns = append(txns, txn)
	}

	p.logger.Info("statement parsed",
		logging.Field{Key: logging.FieldDialect, Value: report.Dialect},
		logging.Field{Key: logging.FieldCount, Value: report.Parsed},
		logging.Field{Key: "skipped", Value: report.Skipped})

	return txns, report, nil
}

// entry is one raw transaction block: tag name to text value, file order
// preserved by the surrounding slice.
type entry map[string]string

// isXMLDialect detects OFX 2.x exports, which carry an XML declaration.
func isXMLDialect(raw []byte) bool {
	head := bytes.TrimLeft(raw, " \t\r\n\xef\xbb\xbf")
	return bytes.HasPrefix(head, []byte("<?xml"))
}

// checkCurrency flags a declared currency that differs from the configured
// one. Offending statements are still parsed; the report carries the flag.
func (p *Parser) checkCurrency(report *models.ParseReport) {
	if p.opts.Currency == "" || report.Currency == "" {
		return
	}
	if !strings.EqualFold(p.opts.Currency, report.Currency) {
		report.CurrencyMismatch = true
		p.logger.Warn("statement currency differs from configured currency",
			logging.Field{Key: "declared", Value: report.Currency},
			logging.Field{Key: "configured", Value: p.opts.Currency})
	}
}

// buildTransaction converts a raw entry into a StatementTransaction,
// recording per-entry errors in the report instead of failing the parse.
func (p *Parser) buildTransaction(index int, e entry, report *models.ParseReport) (models.StatementTransaction, bool) {
	var txn models.StatementTransaction
	txn.Seq = index
	txn.FitID = strings.TrimSpace(e["FITID"])
	txn.Currency = report.Currency

	rawAmount := strings.TrimSpace(e["TRNAMT"])
	if rawAmount == "" {
		report.AddError(index, "TRNAMT", "", "missing amount")
		return txn, false
	}
	amount, err := decimal.NewFromString(normalizeAmount(rawAmount))
	if err != nil {
		report.AddError(index, "TRNAMT", rawAmount, "unparsable amount")
		return txn, false
	}
	if amount.IsZero() {
		report.AddError(index, "TRNAMT", rawAmount, "zero amount")
		return txn, false
	}
	txn.Amount = amount

	rawDate := strings.TrimSpace(e["DTPOSTED"])
	if rawDate == "" {
		report.AddError(index, "DTPOSTED", "", "missing posted date")
		return txn, false
	}
	posted, err := dateutils.ParseStatementDate(rawDate, p.opts.DateFormat)
	if err != nil {
		report.AddError(index, "DTPOSTED", rawDate, "unparsable date")
		return txn, false
	}
	txn.PostedAt = posted

	txn.Memo = strings.TrimSpace(e["MEMO"])
	if txn.Memo == "" {
		txn.Memo = strings.TrimSpace(e["NAME"])
	}

	txn.Type = transactionType(e["TRNTYPE"], amount)

	return txn, true
}

// normalizeAmount accepts the decimal-comma form some banks emit.
func normalizeAmount(s string) string {
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		return strings.Replace(s, ",", ".", 1)
	}
	return s
}

// transactionType maps the declared TRNTYPE onto credit/debit/other, falling
// back to the amount sign when the declaration is absent or unknown.
func transactionType(declared string, amount decimal.Decimal) models.TransactionType {
	switch strings.ToUpper(strings.TrimSpace(declared)) {
	case "CREDIT", "DEP", "DIRECTDEP", "INT":
		return models.TypeCredit
	case "DEBIT", "PAYMENT", "CHECK", "FEE", "ATM", "POS", "XFER":
		return models.TypeDebit
	case "":
		if amount.IsNegative() {
			return models.TypeDebit
		}
		return models.TypeCredit
	default:
		return models.TypeOther
	}
}
