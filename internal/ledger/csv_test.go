package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankrecon/internal/models"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImportFile(t *testing.T) {
	path := writeCSV(t, `ID,Date,Amount,Kind,Description,Status
V-1001,2025-03-10,150.75,OUTFLOW,Pagamento fornecedor XYZ,
V-1002,2025-03-12,2500.00,INFLOW,Venda cliente ABC,SUGGESTED
`)

	records, err := ImportFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "V-1001", first.ID)
	assert.True(t, first.Amount.Equal(decimal.NewFromFloat(150.75)))
	assert.Equal(t, models.KindOutflow, first.Kind)
	// Blank status defaults to unreconciled.
	assert.Equal(t, models.StatusUnreconciled, first.Status)

	assert.Equal(t, models.StatusSuggested, records[1].Status)
}

func TestImportFileRejectsDuplicates(t *testing.T) {
	path := writeCSV(t, `ID,Date,Amount,Kind,Description,Status
V-1,2025-03-10,10.00,OUTFLOW,a,
V-1,2025-03-11,20.00,OUTFLOW,b,
`)

	_, err := ImportFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate ledger record identifier")
}

func TestImportFileRejectsMissingID(t *testing.T) {
	path := writeCSV(t, `ID,Date,Amount,Kind,Description,Status
,2025-03-10,10.00,OUTFLOW,a,
`)

	_, err := ImportFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no identifier")
}

func TestImportFileRejectsNegativeAmount(t *testing.T) {
	path := writeCSV(t, `ID,Date,Amount,Kind,Description,Status
V-1,2025-03-10,-10.00,OUTFLOW,a,
`)

	_, err := ImportFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative amount")
}

func TestExportImportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	records := []models.LedgerRecord{
		{
			ID:          "V-1",
			Date:        models.NewDate(2025, time.March, 10),
			Amount:      decimal.NewFromFloat(150.75),
			Kind:        models.KindOutflow,
			Description: "Pagamento fornecedor",
			Status:      models.StatusConfirmed,
		},
	}

	require.NoError(t, ExportFile(path, records))

	back, err := ImportFile(path)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, records[0].ID, back[0].ID)
	assert.True(t, back[0].Amount.Equal(records[0].Amount))
	assert.Equal(t, records[0].Status, back[0].Status)
	assert.True(t, back[0].Date.Equal(records[0].Date.Time))
}
