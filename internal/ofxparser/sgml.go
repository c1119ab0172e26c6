package ofxparser

import (
	"strings"

	"bankrecon/internal/models"
	"bankrecon/internal/reconerror"
)

// parseSGML decodes the legacy OFX dialect. The format is tag-soup SGML:
// value elements ("<TRNAMT>-150.00") usually have no closing tag, and a new
// "<STMTTRN>" or the end of the list implicitly closes the previous block.
// Parsing proceeds tag by tag; unknown tags are ignored.
func (p *Parser) parseSGML(raw []byte, report *models.ParseReport) ([]entry, error) {
	content := string(raw)

	// Headers like "OFXHEADER:100" precede the first element in SGML files.
	if idx := strings.IndexByte(content, '<'); idx > 0 {
		content = content[idx:]
	} else if idx < 0 {
		return nil, &reconerror.MalformedStatementError{
			Reason:  "no markup found",
			Snippet: snippet(content),
		}
	}

	var (
		entries    []entry
		current    entry
		inTranList bool
		sawList    bool
	)

	flush := func() {
		if current != nil {
			entries = append(entries, current)
			current = nil
		}
	}

	pos := 0
	for pos < len(content) {
		open := strings.IndexByte(content[pos:], '<')
		if open < 0 {
			break
		}
		pos += open + 1

		end := strings.IndexByte(content[pos:], '>')
		if end < 0 {
			// Dangling "<" at EOF. Whatever block was open is kept;
			// its collected fields are judged by buildTransaction.
			break
		}
		tag := strings.ToUpper(strings.TrimSpace(content[pos : pos+end]))
		pos += end + 1

		closing := strings.HasPrefix(tag, "/")
		if closing {
			tag = tag[1:]
		}

		switch tag {
		case "BANKTRANLIST":
			if closing {
				flush()
				inTranList = false
			} else {
				sawList = true
				inTranList = true
			}
			continue
		case "STMTTRN":
			// An opening STMTTRN closes the previous block when the
			// file omitted the closing tag.
			flush()
			if !closing && (inTranList || !p.opts.StrictValidation) {
				current = entry{}
			}
			continue
		}

		if closing {
			continue
		}

		// Element value runs to the next tag.
		value := content[pos:]
		if next := strings.IndexByte(value, '<'); next >= 0 {
			value = value[:next]
		}
		value = strings.TrimSpace(value)

		if tag == "CURDEF" && report.Currency == "" {
			report.Currency = value
			continue
		}

		if current != nil {
			// First occurrence wins; a repeated tag inside one block
			// means the block separator was dropped by the bank.
			if _, seen := current[tag]; !seen {
				current[tag] = value
			}
		}
	}
	flush()

	if p.opts.StrictValidation && !sawList {
		return nil, &reconerror.MalformedStatementError{
			Reason:  "no BANKTRANLIST transaction container",
			Snippet: snippet(content),
		}
	}

	return entries, nil
}

func snippet(content string) string {
	const max = 64
	content = strings.TrimSpace(content)
	if len(content) > max {
		return content[:max]
	}
	return content
}
