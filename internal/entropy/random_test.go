package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeeded_Deterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float(), b.Float())
	}
}

func TestSources_InRange(t *testing.T) {
	sources := map[string]Source{
		"seeded": NewSeeded(1),
		"crypto": Crypto{},
		"clock":  FromSeed(0),
	}
	for name, src := range sources {
		for i := 0; i < 1000; i++ {
			v := src.Float()
			assert.GreaterOrEqual(t, v, 0.0, name)
			assert.Less(t, v, 1.0, name)
		}
	}
}

func TestSequence_Cycles(t *testing.T) {
	s := NewSequence(0.05, 0.9)
	assert.Equal(t, 0.05, s.Float())
	assert.Equal(t, 0.9, s.Float())
	assert.Equal(t, 0.05, s.Float())

	assert.Equal(t, 0.5, NewSequence().Float())
}
