package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/fenwick-labs/corpusengine/internal/model"
	"github.com/stretchr/testify/require"
)

func TestMockDeterministicAndUnitNorm(t *testing.T) {
	m := NewMock(16, 100)
	ctx := context.Background()

	v1, err := m.EmbedQuery(ctx, "hello world")
	require.NoError(t, err)
	v2, err := m.EmbedQuery(ctx, "hello world")
	require.NoError(t, err)
	require.Equal(t, v1, v2, "same text must embed identically")
	require.Len(t, v1, 16)

	var sumSq float64
	for _, f := range v1 {
		sumSq += float64(f) * float64(f)
	}
	require.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-3)
}

func TestMockDocumentVsQueryAsymmetric(t *testing.T) {
	m := NewMock(16, 100)
	ctx := context.Background()

	docVecs, err := m.EmbedDocuments(ctx, []string{"hello world"})
	require.NoError(t, err)
	queryVec, err := m.EmbedQuery(ctx, "hello world")
	require.NoError(t, err)

	require.NotEqual(t, docVecs[0], queryVec)
}

func TestMockRejectsEmptyText(t *testing.T) {
	m := NewMock(16, 100)
	_, err := m.EmbedQuery(context.Background(), "")
	require.Error(t, err)
	require.Equal(t, model.ErrEmptyText, model.CodeOf(err))
}

func TestMockRejectsTooLongText(t *testing.T) {
	m := NewMock(16, 2)
	_, err := m.EmbedQuery(context.Background(), "way more than two words here")
	require.Error(t, err)
	require.Equal(t, model.ErrTextTooLong, model.CodeOf(err))
}

func TestCachingReturnsSameVectorAsInnerAndHitsCache(t *testing.T) {
	inner := NewMock(8, 100)
	c, err := NewCaching(inner, 10)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	want, err := inner.EmbedQuery(ctx, "cached text")
	require.NoError(t, err)

	got1, err := c.EmbedQuery(ctx, "cached text")
	require.NoError(t, err)
	require.Equal(t, want, got1)

	got2, err := c.EmbedQuery(ctx, "cached text")
	require.NoError(t, err)
	require.Equal(t, want, got2)
}

func TestCachingEmbedDocumentsPartialHit(t *testing.T) {
	inner := NewMock(8, 100)
	c, err := NewCaching(inner, 10)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.EmbedDocuments(ctx, []string{"alpha"})
	require.NoError(t, err)

	out, err := c.EmbedDocuments(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	direct, err := inner.EmbedDocuments(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Equal(t, direct[0], out[0])
	require.Equal(t, direct[1], out[1])
}

func TestCachingPassesThroughDimensionAndModelID(t *testing.T) {
	inner := NewMock(12, 100)
	c, err := NewCaching(inner, 10)
	require.NoError(t, err)
	defer c.Close()

	require.Equal(t, inner.Dimension(), c.Dimension())
	require.Equal(t, inner.MaxTokens(), c.MaxTokens())
	require.Equal(t, inner.ModelID(), c.ModelID())
}
