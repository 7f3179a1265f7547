package navigator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.nav.List(ctx, " ")
	assert.ErrorIs(t, err, ErrUsage)

	gens, err := h.nav.List(ctx, pageA)
	require.NoError(t, err)
	assert.Nil(t, gens)

	for _, r := range [][]string{{`{"a":1}`}, {`{"b":2}`}, {`{"c":3}`}} {
		_, err := h.store.Insert(ctx, pageA, rules(r...))
		require.NoError(t, err)
	}

	gens, err = h.nav.List(ctx, pageA)
	require.NoError(t, err)
	require.Len(t, gens, 3)
	for i, g := range gens {
		assert.Equal(t, i+1, g.Sequence)
		assert.Equal(t, pageA, g.URL)
		assert.Equal(t, i == 2, g.Current)
		assert.False(t, g.CreatedAt.IsZero())
	}
}

func TestPop(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.nav.Pop(ctx, "")
	assert.ErrorIs(t, err, ErrUsage)

	g, err := h.nav.Pop(ctx, pageA)
	require.NoError(t, err)
	assert.Nil(t, g, "nothing to pop")

	_, err = h.store.Insert(ctx, pageA, r1)
	require.NoError(t, err)
	_, err = h.store.Insert(ctx, pageA, r2)
	require.NoError(t, err)

	g, err = h.nav.Pop(ctx, pageA)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, 2, g.Sequence)
	assert.Equal(t, r2, g.Rules)

	gens, err := h.nav.List(ctx, pageA)
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.True(t, gens[0].Current, "previous generation becomes current")

	_, err = h.nav.Pop(ctx, pageA)
	require.NoError(t, err)
	gens, err = h.nav.List(ctx, pageA)
	require.NoError(t, err)
	assert.Nil(t, gens, "popping the only generation is a cache miss again")
}
