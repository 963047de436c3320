package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudleather/nfe-ingest/internal/config"
)

func testMerger() *BigQueryMerger {
	return &BigQueryMerger{
		projectID: "sud-leather",
		config: config.BigQueryConfig{
			DatasetID: "Data_base",
			TableID:   "Frigorifico_Nota_Fiscal",
		},
	}
}

func TestStagingTableIDIsUniquePerInvocation(t *testing.T) {
	m := testMerger()
	a := m.stagingTableID()
	b := m.stagingTableID()

	assert.True(t, strings.HasPrefix(a, "Frigorifico_Nota_Fiscal_staging_"))
	assert.NotEqual(t, a, b, "racing invocations must never share a staging table")
	// BigQuery table ids allow letters, digits and underscores only.
	assert.NotContains(t, a, "-")
}

func TestMergeQueryUsesItemSequenceKey(t *testing.T) {
	m := testMerger()
	q := m.mergeQuery("Frigorifico_Nota_Fiscal_staging_abc123")

	require.Contains(t, q, "MERGE `sud-leather.Data_base.Frigorifico_Nota_Fiscal` T")
	require.Contains(t, q, "USING `sud-leather.Data_base.Frigorifico_Nota_Fiscal_staging_abc123` S")
	assert.Contains(t, q, "T.CNPJ = S.CNPJ")
	assert.Contains(t, q, "T.numero_nf = S.numero_nf")
	assert.Contains(t, q, "T.numero_item = S.numero_item")
	// The earlier description-based key is a defect; it must not come back.
	assert.NotContains(t, q, "Descricao")

	// Insert-only reconciliation: no updates, no deletes.
	assert.Contains(t, q, "WHEN NOT MATCHED THEN")
	assert.NotContains(t, q, "WHEN MATCHED")
}
