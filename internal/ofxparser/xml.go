package ofxparser

import (
	"bytes"

	"bankrecon/internal/models"
	"bankrecon/internal/reconerror"

	xmlpath "gopkg.in/xmlpath.v2"
)

var (
	xpathTranList = xmlpath.MustCompile("//BANKTRANLIST")
	xpathStmtTrn  = xmlpath.MustCompile("//BANKTRANLIST/STMTTRN")
	xpathCurrency = xmlpath.MustCompile("//CURDEF")

	// Child paths evaluated relative to each STMTTRN node.
	xpathFields = map[string]*xmlpath.Path{
		"TRNTYPE":  xmlpath.MustCompile("TRNTYPE"),
		"DTPOSTED": xmlpath.MustCompile("DTPOSTED"),
		"TRNAMT":   xmlpath.MustCompile("TRNAMT"),
		"FITID":    xmlpath.MustCompile("FITID"),
		"MEMO":     xmlpath.MustCompile("MEMO"),
		"NAME":     xmlpath.MustCompile("NAME"),
	}
)

// parseXML decodes the OFX 2.x dialect, which is well-formed XML. Extraction
// is XPath-based; any tag not in the field table is ignored.
func (p *Parser) parseXML(raw []byte, report *models.ParseReport) ([]entry, error) {
	root, err := xmlpath.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &reconerror.MalformedStatementError{
			Reason:  "invalid XML: " + err.Error(),
			Snippet: snippet(string(raw)),
		}
	}

	if p.opts.StrictValidation {
		if iter := xpathTranList.Iter(root); !iter.Next() {
			return nil, &reconerror.MalformedStatementError{
				Reason: "no BANKTRANLIST transaction container",
			}
		}
	}

	if currency, ok := xpathCurrency.String(root); ok {
		report.Currency = currency
	}

	var entries []entry
	iter := xpathStmtTrn.Iter(root)
	for iter.Next() {
		node := iter.Node()
		e := entry{}
		for tag, path := range xpathFields {
			if value, ok := path.String(node); ok {
				e[tag] = value
			}
		}
		entries = append(entries, e)
	}

	return entries, nil
}
