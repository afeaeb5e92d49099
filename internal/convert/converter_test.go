package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kerem-kaynak/uvlhub/internal/apperr"
	"github.com/kerem-kaynak/uvlhub/internal/uvl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatUVL = `features
    Chat
        mandatory
            Connection
                alternative
                    "Peer 2 Peer"
                    Server
            Messages
                or
                    Text
                    Video
        optional
            "Data Storage"

constraints
    Video => "Data Storage"
`

type memorySource map[string][]byte

func (m memorySource) Get(_ context.Context, key string) ([]byte, error) {
	content, ok := m[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return content, nil
}

func TestParseFormat(t *testing.T) {
	for _, literal := range []string{"UVL", "DIMACS", "SPLOT", "GLENCOE"} {
		f, err := ParseFormat(literal)
		require.NoError(t, err)
		assert.Equal(t, literal, string(f))
	}

	for _, literal := range []string{"WRONG", "uvl", "", "dimacs "} {
		_, err := ParseFormat(literal)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindUnsupported))
		assert.Equal(t, UnsupportedFormatMessage, apperr.Message(err))
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "chat.uvl", UVL.Filename("chat.uvl"))
	assert.Equal(t, "chat.uvl_cnf.txt", DIMACS.Filename("chat.uvl"))
	assert.Equal(t, "chat.uvl_splot.txt", SPLOT.Filename("chat.uvl"))
	assert.Equal(t, "chat.uvl_glencoe.txt", GLENCOE.Filename("chat.uvl"))
}

func TestConvert_UVLPassThrough(t *testing.T) {
	content := []byte("not even valid uvl")

	res, err := Convert("x.uvl", content, UVL)
	require.NoError(t, err)
	assert.Equal(t, "x.uvl", res.Filename)
	assert.Equal(t, content, res.Content)
}

func TestConvert_DIMACS(t *testing.T) {
	res, err := Convert("chat.uvl", []byte(chatUVL), DIMACS)
	require.NoError(t, err)
	assert.Equal(t, "chat.uvl_cnf.txt", res.Filename)

	lines := strings.Split(strings.TrimSpace(string(res.Content)), "\n")
	assert.Equal(t, "c 1 Chat", lines[0])
	assert.Equal(t, "c 3 Peer 2 Peer", lines[2])
	assert.Equal(t, "p cnf 8 14", lines[8])

	clauses := lines[9:]
	assert.Len(t, clauses, 14)
	assert.Equal(t, "1 0", clauses[0])
	assert.Contains(t, clauses, "-2 1 0")
	assert.Contains(t, clauses, "-1 2 0")
	assert.Contains(t, clauses, "-2 3 4 0")
	assert.Contains(t, clauses, "-3 -4 0")
	assert.Contains(t, clauses, "-5 6 7 0")
	assert.Contains(t, clauses, "-8 1 0")
	assert.Contains(t, clauses, "-7 8 0")
	for _, c := range clauses {
		assert.True(t, strings.HasSuffix(c, " 0"), c)
	}
}

func TestConvert_SPLOT(t *testing.T) {
	res, err := Convert("chat.uvl", []byte(chatUVL), SPLOT)
	require.NoError(t, err)
	assert.Equal(t, "chat.uvl_splot.txt", res.Filename)

	out := string(res.Content)
	assert.Contains(t, out, `<feature_model name="Chat">`)
	assert.Contains(t, out, ":r Chat (Chat)\n")
	assert.Contains(t, out, "\t:m Connection (Connection)\n")
	assert.Contains(t, out, "\t\t:g (Connection_g_1) [1,1]\n")
	assert.Contains(t, out, "\t\t\t: Peer 2 Peer (Peer_2_Peer)\n")
	assert.Contains(t, out, "\t\t:g (Messages_g_1) [1,*]\n")
	assert.Contains(t, out, "\t:o Data Storage (Data_Storage)\n")
	assert.Contains(t, out, "C1: ~Video or Data_Storage\n")
	assert.True(t, strings.HasSuffix(out, "</feature_model>\n"))
}

func TestConvert_GLENCOE(t *testing.T) {
	res, err := Convert("chat.uvl", []byte(chatUVL), GLENCOE)
	require.NoError(t, err)
	assert.Equal(t, "chat.uvl_glencoe.txt", res.Filename)

	var doc struct {
		ID       string `json:"id"`
		Features map[string]struct {
			Type     string `json:"type"`
			Optional bool   `json:"optional"`
		} `json:"features"`
		Tree struct {
			ID       string `json:"id"`
			Children []struct {
				ID string `json:"id"`
			} `json:"children"`
		} `json:"tree"`
		Constraints []struct {
			Type     string            `json:"type"`
			Operands []json.RawMessage `json:"operands"`
		} `json:"constraints"`
	}
	require.NoError(t, json.Unmarshal(res.Content, &doc))

	assert.Equal(t, "FM_Chat", doc.ID)
	assert.Equal(t, "Chat", doc.Tree.ID)
	require.Len(t, doc.Tree.Children, 3)
	assert.Equal(t, "XOR", doc.Features["Connection"].Type)
	assert.Equal(t, "OR", doc.Features["Messages"].Type)
	assert.False(t, doc.Features["Connection"].Optional)
	assert.True(t, doc.Features["Data Storage"].Optional)
	require.Len(t, doc.Constraints, 1)
	assert.Equal(t, "ImpliesTerm", doc.Constraints[0].Type)
	assert.Len(t, doc.Constraints[0].Operands, 2)
}

func TestConvert_GLENCOEMixedGroups(t *testing.T) {
	model := "features\n  Root\n    mandatory\n      A\n    or\n      B\n      C\n"

	res, err := Convert("mixed.uvl", []byte(model), GLENCOE)
	require.NoError(t, err)
	assert.Contains(t, string(res.Content), `"Root_group_2"`)
}

func TestConvert_Idempotent(t *testing.T) {
	for _, f := range Formats {
		first, err := Convert("chat.uvl", []byte(chatUVL), f)
		require.NoError(t, err)
		second, err := Convert("chat.uvl", []byte(chatUVL), f)
		require.NoError(t, err)
		assert.Equal(t, first.Content, second.Content, string(f))
	}
}

func TestConvert_InvalidSource(t *testing.T) {
	for _, f := range []Format{DIMACS, SPLOT, GLENCOE} {
		_, err := Convert("broken.uvl", []byte("features\n  A\n    B\n"), f)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindConversion))
		assert.Contains(t, err.Error(), "broken.uvl")
		assert.Contains(t, err.Error(), string(f))
	}
}

func TestConverter_MissingFile(t *testing.T) {
	c := NewConverter(memorySource{"user_1/dataset_1/a.uvl": []byte(chatUVL)})

	_, err := c.ConvertFile(context.Background(), "user_1/dataset_1/missing.uvl", "missing.uvl", DIMACS)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConversion))

	res, err := c.ConvertFile(context.Background(), "user_1/dataset_1/a.uvl", "a.uvl", SPLOT)
	require.NoError(t, err)
	assert.Equal(t, "a.uvl_splot.txt", res.Filename)
}

func TestEncode_CardinalityGroup(t *testing.T) {
	model, err := uvl.ParseModel("features\n  R\n    [2..3]\n      A\n      B\n      C\n      D\n")
	require.NoError(t, err)

	cnf, err := Encode(model)
	require.NoError(t, err)

	// root, 4 child implications, 4 at-least-two subsets of size 3, 1 at-most-three clause
	assert.Len(t, cnf.Clauses, 10)
	assert.Contains(t, cnf.Clauses, Clause{-2, -3, -4, -5})
}

func TestEncode_EquivalenceConstraint(t *testing.T) {
	model, err := uvl.ParseModel("features\n  R\n    optional\n      A\n      B\nconstraints\n  A <=> B\n")
	require.NoError(t, err)

	cnf, err := Encode(model)
	require.NoError(t, err)

	assert.Contains(t, cnf.Clauses, Clause{-2, 3})
	assert.Contains(t, cnf.Clauses, Clause{2, -3})
}

func wideCardinalityModel(children int) string {
	var b strings.Builder
	b.WriteString("features\n  Root\n    [4..8]\n")
	for i := 0; i < children; i++ {
		fmt.Fprintf(&b, "      F%d\n", i)
	}
	b.WriteString("constraints\n  F0 => F1\n")
	return b.String()
}

func TestConvert_WideCardinalityGroup(t *testing.T) {
	content := []byte(wideCardinalityModel(40))

	_, err := Convert("wide.uvl", content, DIMACS)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConversion))
	assert.Contains(t, err.Error(), "wide.uvl")

	for _, f := range []Format{SPLOT, GLENCOE} {
		res, err := Convert("wide.uvl", content, f)
		require.NoError(t, err, string(f))
		assert.NotEmpty(t, res.Content)
	}
}

func TestEncode_GroupExpansionLimit(t *testing.T) {
	small, err := uvl.ParseModel(wideCardinalityModel(10))
	require.NoError(t, err)
	_, err = Encode(small)
	require.NoError(t, err)

	wide, err := uvl.ParseModel(wideCardinalityModel(24))
	require.NoError(t, err)
	_, err = Encode(wide)
	assert.ErrorContains(t, err, "cardinality encoding exceeds")
}

func TestBinomial(t *testing.T) {
	assert.Equal(t, 1, binomial(4, 0))
	assert.Equal(t, 4, binomial(4, 3))
	assert.Equal(t, 252, binomial(10, 5))
	assert.Equal(t, 0, binomial(3, 4))
	assert.Equal(t, maxClauseExpansion+1, binomial(40, 20))
}
