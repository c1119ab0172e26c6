package textutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and strips punctuation",
			input:    "PAGAMENTO, FORNECEDOR; XYZ!",
			expected: "pagamento fornecedor xyz",
		},
		{
			name:     "strips accents",
			input:    "Transferência Bancária",
			expected: "transferencia bancaria",
		},
		{
			name:     "slashes become spaces",
			input:    "PIX TRANSF 123/456",
			expected: "pix transf 123 456",
		},
		{
			name:     "separator runs collapse to one space",
			input:    "Pagamento,  Fornecedor -- XYZ",
			expected: "pagamento fornecedor xyz",
		},
		{
			name:     "leading and trailing separators trimmed",
			input:    "  *FEE*  ",
			expected: "fee",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("Pagamento Fornecedor XYZ Ltda.")
	assert.Equal(t, []string{"pagamento", "fornecedor", "xyz", "ltda"}, tokens)
}

func TestTokenOverlap(t *testing.T) {
	t.Run("identical strings", func(t *testing.T) {
		assert.Equal(t, 1.0, TokenOverlap("Coffee Shop", "coffee shop"))
	})

	t.Run("case and accent insensitive", func(t *testing.T) {
		score := TokenOverlap("PAGAMENTO FORNECEDOR XYZ", "Pagaménto Fornecedor XYZ Ltda")
		// Three of four distinct tokens shared.
		assert.InDelta(t, 0.75, score, 1e-9)
	})

	t.Run("no shared tokens", func(t *testing.T) {
		assert.Equal(t, 0.0, TokenOverlap("rent payment", "grocery store"))
	})

	t.Run("empty side scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, TokenOverlap("", "anything"))
	})

	t.Run("duplicate tokens count once", func(t *testing.T) {
		assert.Equal(t, 1.0, TokenOverlap("fee fee fee", "fee"))
	})
}
