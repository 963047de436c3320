// Package nfe extracts line-item rows from Brazilian NF-e invoice XML
// (namespace http://www.portalfiscal.inf.br/nfe).
package nfe

import (
	"encoding/xml"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/sudleather/nfe-ingest/internal/models"
)

// The document arrives either as a signed nfeProc wrapper around NFe or as a
// bare NFe element. Unmarshal ignores the root element's name, so one
// envelope covers both: exactly one of the two fields ends up non-nil.
type xmlEnvelope struct {
	Wrapped *xmlInfNFe `xml:"NFe>infNFe"`
	Direct  *xmlInfNFe `xml:"infNFe"`
}

type xmlInfNFe struct {
	Ide struct {
		NNF   string `xml:"nNF"`
		DhEmi string `xml:"dhEmi"`
		DEmi  string `xml:"dEmi"`
	} `xml:"ide"`
	Emit struct {
		CNPJ  string `xml:"CNPJ"`
		XNome string `xml:"xNome"`
	} `xml:"emit"`
	Transp struct {
		Vol []struct {
			QVol string `xml:"qVol"`
		} `xml:"vol"`
	} `xml:"transp"`
	Det []xmlDet `xml:"det"`
}

type xmlDet struct {
	NItem string   `xml:"nItem,attr"`
	Prod  *xmlProd `xml:"prod"`
}

type xmlProd struct {
	XProd  string `xml:"xProd"`
	QCom   string `xml:"qCom"`
	VUnCom string `xml:"vUnCom"`
	VProd  string `xml:"vProd"`
}

// Parse extracts one denormalized row per line item from raw NF-e XML. It is
// a pure function over its input; the only side effect is a warning log for
// items skipped due to a missing prod element.
func Parse(data []byte) ([]models.ExtractedRow, error) {
	var env xmlEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	inf := env.Wrapped
	if inf == nil {
		inf = env.Direct
	}
	if inf == nil {
		return nil, fmt.Errorf("%w: infNFe", ErrMissingField)
	}

	rawDate := inf.Ide.DhEmi
	if rawDate == "" {
		rawDate = inf.Ide.DEmi
	}

	var missing []string
	if strings.TrimSpace(inf.Ide.NNF) == "" {
		missing = append(missing, "ide/nNF")
	}
	if strings.TrimSpace(rawDate) == "" {
		missing = append(missing, "ide/dhEmi")
	}
	if strings.TrimSpace(inf.Emit.XNome) == "" {
		missing = append(missing, "emit/xNome")
	}
	if strings.TrimSpace(inf.Emit.CNPJ) == "" {
		missing = append(missing, "emit/CNPJ")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	issueDate, err := parseIssueDate(rawDate)
	if err != nil {
		return nil, err
	}

	volumeCount, err := parseVolumeCount(inf)
	if err != nil {
		return nil, err
	}

	header := models.InvoiceHeader{
		InvoiceNumber: strings.TrimSpace(inf.Ide.NNF),
		IssueDate:     issueDate,
		IssuerName:    strings.TrimSpace(inf.Emit.XNome),
		IssuerTaxID:   strings.TrimSpace(inf.Emit.CNPJ),
		VolumeCount:   volumeCount,
	}

	items := make([]models.LineItem, 0, len(inf.Det))
	for i, det := range inf.Det {
		if det.Prod == nil {
			slog.Warn("Line item has no prod element. Skipping.",
				"invoiceNumber", header.InvoiceNumber, "nItem", det.NItem)
			continue
		}
		item, err := parseLineItem(i, det)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, ErrNoLineItems
	}

	return models.FlattenRows(header, items), nil
}

// parseIssueDate extracts the calendar date from dhEmi/dEmi text. The value
// may be a bare date or a date-time with an optional offset; the time and
// offset are dropped by truncating at the separator.
func parseIssueDate(raw string) (civil.Date, error) {
	datePart, _, _ := strings.Cut(strings.TrimSpace(raw), "T")
	d, err := civil.ParseDate(datePart)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}
	return d, nil
}

func parseVolumeCount(inf *xmlInfNFe) (int, error) {
	if len(inf.Transp.Vol) == 0 {
		return 0, nil
	}
	raw := strings.TrimSpace(inf.Transp.Vol[0].QVol)
	if raw == "" {
		return 0, nil
	}
	// qVol is sometimes written with a decimal part; truncate like the table
	// expects.
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: transp/vol/qVol %q is not numeric", ErrMalformed, raw)
	}
	return int(f), nil
}

func parseLineItem(position int, det xmlDet) (models.LineItem, error) {
	seq := position + 1
	if n, err := strconv.Atoi(strings.TrimSpace(det.NItem)); err == nil && n > 0 {
		seq = n
	}

	quantity, err := parseDecimal(det.Prod.QCom)
	if err != nil {
		return models.LineItem{}, fmt.Errorf("%w: item %d: qCom %q is not numeric", ErrMalformed, seq, det.Prod.QCom)
	}
	unitValue, err := parseDecimal(det.Prod.VUnCom)
	if err != nil {
		return models.LineItem{}, fmt.Errorf("%w: item %d: vUnCom %q is not numeric", ErrMalformed, seq, det.Prod.VUnCom)
	}
	totalValue, err := parseDecimal(det.Prod.VProd)
	if err != nil {
		return models.LineItem{}, fmt.Errorf("%w: item %d: vProd %q is not numeric", ErrMalformed, seq, det.Prod.VProd)
	}

	return models.LineItem{
		Sequence:    seq,
		Description: strings.TrimSpace(det.Prod.XProd),
		QuantityKg:  quantity,
		UnitValue:   unitValue,
		TotalValue:  totalValue,
	}, nil
}

// parseDecimal coerces an optional numeric text node. Absent or empty text is
// zero; non-numeric text is an error, never silently zeroed.
func parseDecimal(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
