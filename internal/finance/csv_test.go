package finance

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCSVFilename(t *testing.T) {
	assert.True(t, IsCSVFilename("statement.csv"))
	assert.True(t, IsCSVFilename("Statement.CSV"))
	assert.False(t, IsCSVFilename("statement.xlsx"))
	assert.False(t, IsCSVFilename("statement"))
}

func TestReadStatement(t *testing.T) {
	in := strings.NewReader(
		"Date,Description,Amount\n" +
			"2025-09-12,Daily Grind Coffee,-6.50\n" +
			"2025-09-08,Salary Deposit,3500.00\n")

	txs, err := ReadStatement(in)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "2025-09-12", txs[0].Date)
	assert.Equal(t, "Daily Grind Coffee", txs[0].Description)
	assert.True(t, txs[0].Amount.Equal(dec("-6.50")))
	assert.Empty(t, txs[0].ID)
	assert.Empty(t, txs[0].Category)
}

func TestReadStatement_CaseInsensitiveHeader(t *testing.T) {
	in := strings.NewReader("date,description,amount\n2025-01-01,Coffee,-3.00\n")

	txs, err := ReadStatement(in)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestReadStatement_MissingColumn(t *testing.T) {
	in := strings.NewReader("Date,Amount\n2025-01-01,-3.00\n")

	_, err := ReadStatement(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Description")
}

func TestReadStatement_InvalidAmount(t *testing.T) {
	in := strings.NewReader("Date,Description,Amount\n2025-01-01,Coffee,three\n")

	_, err := ReadStatement(in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadStatement_Empty(t *testing.T) {
	_, err := ReadStatement(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadStatement_HeaderOnly(t *testing.T) {
	txs, err := ReadStatement(strings.NewReader("Date,Description,Amount\n"))
	require.NoError(t, err)
	assert.Empty(t, txs)
}
