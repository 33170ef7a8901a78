package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFeedFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadParsesBothPools(t *testing.T) {
	t.Parallel()
	path := writeFeedFile(t, `{
		"roundOne": [
			{"id": 1, "category": "geography", "question": "Capital of France?", "answer": "Paris"},
			{"id": 2, "question": "2+2?", "answer": "4"}
		],
		"roundTwo": [
			{"id": 101, "question": "Capital of Spain?", "answer": "Madrid"}
		]
	}`)

	f, err := Load(path)
	require.NoError(t, err)

	pool := f.RoundOne()
	require.Len(t, pool, 2)
	assert.Equal(t, "Capital of France?", pool[0].Prompt)
	assert.Equal(t, "Paris", pool[0].Answer)
	assert.Equal(t, "geography", pool[0].Category)

	require.Equal(t, 1, f.RoundTwoSize())
	assert.Equal(t, "Madrid", f.RoundTwo(0).Answer)
}

func TestLoadRejectsEmptyRoundOne(t *testing.T) {
	t.Parallel()
	path := writeFeedFile(t, `{"roundOne": [], "roundTwo": []}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no round one questions")
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	path := writeFeedFile(t, `{"roundOne": [`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestRoundOneReturnsIndependentCopy(t *testing.T) {
	t.Parallel()
	f := New([]Question{{ID: 1, Prompt: "q", Answer: "a"}}, nil)

	pool := f.RoundOne()
	pool[0].Answer = "mutated"

	assert.Equal(t, "a", f.RoundOne()[0].Answer)
}

func TestShippedQuestionFileLoads(t *testing.T) {
	t.Parallel()
	f, err := Load("questions.json")
	require.NoError(t, err)
	assert.NotEmpty(t, f.RoundOne())
	assert.Greater(t, f.RoundTwoSize(), 0)
}
