package normaliser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanTextMojibake(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no trigger characters untouched",
			input: "CO‚ emissions",
			want:  "CO‚ emissions",
		},
		{
			name:  "accented e",
			input: "sautÃ©ed",
			want:  "sautéed",
		},
		{
			name:  "degree sign",
			input: "1.5Â°C",
			want:  "1.5°C",
		},
		{
			name:  "en dash",
			input: "beef â€“ lamb",
			want:  "beef – lamb",
		},
		{
			name:  "clean text untouched",
			input: "plain ASCII text",
			want:  "plain ASCII text",
		},
		{
			name:  "genuine accents preserved",
			input: "émissions de carbone",
			want:  "émissions de carbone",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestCleanTextIdempotent(t *testing.T) {
	inputs := []string{
		"sautÃ©ed vegetables",
		"1.5Â°C warming",
		"ﬁsh ﬁllets",
		"plain text",
		"émissions",
	}
	for _, input := range inputs {
		once := CleanText(input)
		assert.Equal(t, once, CleanText(once), "input %q", input)
	}
}

func TestCleanTextSpecials(t *testing.T) {
	assert.Equal(t, "fish fillets", CleanText("ﬁsh ﬁllets"))
	assert.Equal(t, "a b", CleanText("a b"))
	assert.Equal(t, "ab", CleanText("a​b"))
	assert.Equal(t, "ab", CleanText("a\uFEFFb"))
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "lowercases and strips punctuation",
			input: "What is the carbon footprint of Beef?",
			want:  []string{"carbon", "footprint", "beef"},
		},
		{
			name:  "drops stopwords and short tokens",
			input: "it is an ox on a hill",
			want:  []string{"hill"},
		},
		{
			name:  "contractions lose their apostrophes",
			input: "don't you're",
			want:  []string{},
		},
		{
			name:  "empty input",
			input: "",
			want:  []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.input))
		})
	}
}

func TestTokenizeDeterministic(t *testing.T) {
	input := "Greenhouse gas emissions from food production"
	assert.Equal(t, Tokenize(input), Tokenize(input))
}
