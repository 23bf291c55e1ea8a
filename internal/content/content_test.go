package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, c.Prompts)
	assert.NotEmpty(t, c.Questions)
	assert.NotEmpty(t, c.Words)
	assert.NotEmpty(t, c.Puzzles)
	assert.GreaterOrEqual(t, len(c.Colors), 2)

	for _, w := range c.Words {
		assert.Equal(t, strings.ToLower(w), w)
	}
	for _, q := range c.Questions {
		assert.Less(t, q.Answer, len(q.Options), q.Text)
	}
}

func TestValidateRejectsBadAnswer(t *testing.T) {
	c := MustLoad()
	c.Questions = []Question{{Text: "?", Options: []string{"x"}, Answer: 3}}
	assert.Error(t, c.validate())
}
