package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestCachedEmbedder_ReusesVectors(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 1<<20)
	require.NoError(t, err)
	defer c.Close()

	first, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	c.Wait()

	second, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedder_BatchUsesCache(t *testing.T) {
	inner := &countingEmbedder{}
	c, err := NewCachedEmbedder(inner, 1<<20)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Embed(context.Background(), "a")
	require.NoError(t, err)
	c.Wait()

	out, err := c.EmbedBatch(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, float32(2), out[1][0])
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("down")}
	c, err := NewCachedEmbedder(inner, 0)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Embed(context.Background(), "x")
	require.Error(t, err)
	c.Wait()

	inner.err = nil
	v, err := c.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.NotEmpty(t, v)
	assert.Equal(t, 2, inner.calls)
}
