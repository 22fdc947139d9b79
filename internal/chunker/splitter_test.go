package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one char", "a", 1},
		{"exact multiple", "abcd", 1},
		{"rounds up", "abcde", 2},
		{"counts characters not bytes", "éééé", 1},
		{"longer text", strings.Repeat("x", 401), 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateTokens(tt.text))
		})
	}
}

func TestTiktokenCounter(t *testing.T) {
	counter, err := NewTiktokenCounter("")
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}

	assert.Equal(t, "cl100k_base", counter.Encoding())
	assert.Equal(t, 0, counter.Count(""))
	assert.Greater(t, counter.Count("Configure the VAT settings in CRS610."), 0)
}

func TestSplitRecursive_Empty(t *testing.T) {
	assert.Empty(t, SplitRecursive("", 10))
}

func TestSplitRecursive_FitsInOneSpan(t *testing.T) {
	text := "Short paragraph.\n\nAnother one."
	assert.Equal(t, []string{text}, SplitRecursive(text, 512))
}

func TestSplitRecursive_PrefersParagraphBoundary(t *testing.T) {
	spans := SplitRecursive("aaaa\n\nbbbb", 2)
	assert.Equal(t, []string{"aaaa\n\n", "bbbb"}, spans)
}

func TestSplitRecursive_CoverageAndBudget(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Follow these steps to configure the accounting entries for each division. ")
		if i%3 == 0 {
			b.WriteString("Is the voucher series defined? Check it first! ")
		}
		if i%5 == 0 {
			b.WriteString("\n")
		}
		if i%7 == 0 {
			b.WriteString("\n\n")
		}
	}
	b.WriteString(strings.Repeat("x", 300))
	text := b.String()

	for _, budget := range []int{1, 5, 20, 64, 512} {
		spans := SplitRecursive(text, budget)
		require.NotEmpty(t, spans)

		assert.Equal(t, text, strings.Join(spans, ""), "budget %d", budget)
		for _, s := range spans {
			assert.NotEmpty(t, s)
			assert.LessOrEqual(t, EstimateTokens(s), budget, "budget %d span %q", budget, s)
		}
	}
}

func TestSplitRecursive_RuneSafe(t *testing.T) {
	text := strings.Repeat("Ünïcödé ", 50) + strings.Repeat("日本語", 30)

	spans := SplitRecursive(text, 3)

	assert.Equal(t, text, strings.Join(spans, ""))
	for _, s := range spans {
		assert.True(t, utf8.ValidString(s), "span %q is not valid UTF-8", s)
	}
}

func TestSplitRecursive_BudgetBelowOne(t *testing.T) {
	spans := SplitRecursive("abcdefgh", 0)

	assert.Equal(t, "abcdefgh", strings.Join(spans, ""))
	assert.Len(t, spans, 2)
}

func TestSplitParagraphs(t *testing.T) {
	text := "Overview\nShort intro.\n\n\n\nFollow these steps\n1. Do X\n\n   \n\nRelated topics"

	blocks := SplitParagraphs(text)

	assert.Equal(t, []string{
		"Overview\nShort intro.",
		"Follow these steps\n1. Do X",
		"Related topics",
	}, blocks)
}
