package predicate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_EmptyMatchesEverything(t *testing.T) {
	p, err := Compile("   ")
	require.NoError(t, err)
	ok, err := p.Match(map[string]any{"name": "x"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, p.Fields())

	var nilPred *Predicate
	ok, err = nilPred.Match(nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompile_Match(t *testing.T) {
	p, err := Compile(`r.status == "open" && r.priority > 2`)
	require.NoError(t, err)

	ok, err := p.Match(map[string]any{"status": "open", "priority": int64(3)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Match(map[string]any{"status": "done", "priority": int64(5)})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompile_Fields(t *testing.T) {
	p, err := Compile(`r.title.startsWith("a") || r["due date"] != null || [r.tag].exists(x, x == "b")`)
	require.NoError(t, err)
	assert.Equal(t, []string{"due date", "tag", "title"}, p.Fields())
	assert.Equal(t, `r.title.startsWith("a") || r["due date"] != null || [r.tag].exists(x, x == "b")`, p.String())
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(`r.status ==`)
	require.Error(t, err)

	_, err = Compile(`"just a string"`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotBool))
}

func TestMatch_MissingFieldIsEvalError(t *testing.T) {
	p, err := Compile(`r.missing == 1`)
	require.NoError(t, err)
	_, err = p.Match(map[string]any{"present": 1})
	require.Error(t, err)
}
