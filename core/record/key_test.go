package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_FromKey(t *testing.T) {
	t.Run("Composite", func(t *testing.T) {
		probe, err := commentType.FromKey("c1::2::t9::2::p1")
		require.NoError(t, err)
		assert.Equal(t, "c1", probe.Value("id"))
		assert.Equal(t, "t9", probe.Value("thread"))
		assert.Equal(t, "p1", probe.Value("project"))
		assert.Nil(t, probe.Value("body"))
		assert.False(t, probe.IsDirty())
	})

	t.Run("Defaults", func(t *testing.T) {
		probe, err := projectType.FromKey("p1")
		require.NoError(t, err)
		assert.Equal(t, "untitled", probe.Value("title"))
		assert.Equal(t, "p1", probe.Key())
	})

	t.Run("NumericIdentifiers", func(t *testing.T) {
		cell := MustNewType("cell",
			Field{Name: "col", Kind: Int, Identifier: true},
			Field{Name: "weight", Kind: Float, Identifier: true},
			Field{Name: "on", Kind: Bool, Identifier: true},
		)
		probe, err := cell.FromKey("7::1::0.5::3::true")
		require.NoError(t, err)
		assert.Equal(t, 7, probe.Value("col"))
		assert.Equal(t, 0.5, probe.Value("weight"))
		assert.Equal(t, true, probe.Value("on"))
		assert.Equal(t, "7::1::0.5::3::true", probe.Key())

		_, err = cell.FromKey("x::1::0.5::3::true")
		assert.ErrorContains(t, err, "field col")
	})

	t.Run("WrongArity", func(t *testing.T) {
		_, err := commentType.FromKey("c1")
		assert.ErrorContains(t, err, "needs 3")
	})

	t.Run("NoIdentifier", func(t *testing.T) {
		anon := MustNewType("anon", Field{Name: "v", Kind: Int})
		_, err := anon.FromKey("x")
		assert.Error(t, err)
	})
}
