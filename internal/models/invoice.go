package models

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// InvoiceHeader holds the per-document fields of an NF-e. Invoice number and
// issuer tax id (CNPJ) stay strings: both carry leading zeros that an integer
// would destroy.
type InvoiceHeader struct {
	InvoiceNumber string
	IssueDate     civil.Date
	IssuerName    string
	IssuerTaxID   string
	VolumeCount   int
}

// LineItem is one product line of an invoice. Sequence is the document's own
// item index (the det element's nItem attribute), unique within the invoice.
type LineItem struct {
	Sequence    int
	Description string
	QuantityKg  float64
	UnitValue   float64
	TotalValue  float64
}

// ExtractedRow is one line item flattened with its header, in the shape of the
// durable BigQuery table. Column names match the production table.
type ExtractedRow struct {
	InvoiceNumber string     `bigquery:"numero_nf"`
	IssueDate     civil.Date `bigquery:"data_emissao"`
	IssuerName    string     `bigquery:"emitente"`
	IssuerTaxID   string     `bigquery:"CNPJ"`
	ItemSequence  int        `bigquery:"numero_item"`
	Description   string     `bigquery:"Descricao"`
	VolumeCount   int        `bigquery:"Quantidade_pcs"`
	QuantityKg    float64    `bigquery:"Quantidade_kg"`
	UnitValue     float64    `bigquery:"valor_unitario"`
	TotalValue    float64    `bigquery:"valor_total_produto"`
}

// Key returns the natural key of the row. Earlier table revisions keyed on the
// item description, which collides when an invoice repeats a product; the item
// sequence number is collision-free.
func (r ExtractedRow) Key() string {
	return fmt.Sprintf("%s|%s|%d", r.IssuerTaxID, r.InvoiceNumber, r.ItemSequence)
}

// FlattenRows denormalizes the header onto each line item, preserving item
// order.
func FlattenRows(header InvoiceHeader, items []LineItem) []ExtractedRow {
	rows := make([]ExtractedRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, ExtractedRow{
			InvoiceNumber: header.InvoiceNumber,
			IssueDate:     header.IssueDate,
			IssuerName:    header.IssuerName,
			IssuerTaxID:   header.IssuerTaxID,
			ItemSequence:  item.Sequence,
			Description:   item.Description,
			VolumeCount:   header.VolumeCount,
			QuantityKg:    item.QuantityKg,
			UnitValue:     item.UnitValue,
			TotalValue:    item.TotalValue,
		})
	}
	return rows
}
