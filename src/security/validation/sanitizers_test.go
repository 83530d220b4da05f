package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid simple", "miguel", false},
		{"valid with separators", "miguel.lo-pez_2", false},
		{"too short", "ab", true},
		{"spaces", "mi guel", true},
		{"html", "<script>", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(""))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("longenough"))
	assert.Error(t, ValidatePassword("short"))
}

func TestNormalizeSymbol(t *testing.T) {
	symbol, err := NormalizeSymbol("  aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", symbol)

	symbol, err = NormalizeSymbol("brk.b")
	require.NoError(t, err)
	assert.Equal(t, "BRK.B", symbol)

	_, err = NormalizeSymbol("")
	assert.Error(t, err)

	_, err = NormalizeSymbol("DROP TABLE")
	assert.Error(t, err)
}

func TestSanitizeForFormulaInjection(t *testing.T) {
	assert.Equal(t, "'=SUM(A1)", SanitizeForFormulaInjection("=SUM(A1)"))
	assert.Equal(t, "'+HYPERLINK(...)", SanitizeForFormulaInjection("+HYPERLINK(...)"))
	assert.Equal(t, "plain note", SanitizeForFormulaInjection("plain note"))
}
