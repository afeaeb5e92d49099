package uvl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountFeatures(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"keywords excluded", "features\n  Chat\n  mandatory\n  or\n  Video", 2},
		{"stops at block end", "features\n  Chat\n  Video\n  Audio\nOtherSection\n  NotFeature", 3},
		{"nested features counted individually", "features\n    Chat\n        mandatory\n            Video\n            Audio", 3},
		{"no features block", "namespace Chat\nconstraints\n  A => B", 0},
		{"empty input", "", 0},
		{"empty block", "features", 0},
		{"keyword match is case sensitive", "features\n  Mandatory\n  OR", 2},
		{"features must match exactly", "features:\n  A\n  B", 0},
		{"blank lines inside block", "features\n  A\n\n  B\n", 2},
		{"indented features line", "namespace X\n  features\n    A\n    B\n  constraints\n    A => B", 2},
		{"full model", chatModel, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountFeatures(tt.text))
		})
	}
}

func TestCounter_ExtraKeywords(t *testing.T) {
	counter := NewCounter("cardinality")

	n, err := counter.Count(strings.NewReader("features\n  A\n  cardinality\n  optional\n  B"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCounter_OnlyFirstFeaturesBlock(t *testing.T) {
	text := "features\n  A\nconstraints\n  x\nfeatures\n  B\n  C"

	assert.Equal(t, 1, CountFeatures(text))
}

func TestCounter_LineTooLong(t *testing.T) {
	text := "features\n  " + strings.Repeat("x", maxLineSize+1) + "\n"

	_, err := NewCounter().Count(strings.NewReader(text))
	require.Error(t, err)
	assert.Equal(t, 0, CountFeatures(text))
}
