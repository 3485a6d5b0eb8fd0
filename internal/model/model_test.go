package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateCollectionName(t *testing.T) {
	require.NoError(t, ValidateCollectionName("code_docs-v2"))
	require.Error(t, ValidateCollectionName(""))
	require.Error(t, ValidateCollectionName("has space"))
	require.Error(t, ValidateCollectionName("slash/es"))
}

func TestDetectContentType(t *testing.T) {
	require.Equal(t, ContentRust, DetectContentType("", "rs", nil))
	require.Equal(t, ContentGo, DetectContentType("", ".go", nil))
	require.Equal(t, ContentMarkdown, DetectContentType(ContentUnknown, "md", nil))
	require.Equal(t, ContentPython, DetectContentType(ContentPython, "go", nil), "hint wins over extension")
	require.Equal(t, ContentPDF, DetectContentType("", "", []byte("%PDF-1.7 ...")))
	require.Equal(t, ContentUnknown, DetectContentType("", "weirdext", []byte("binary\x00junk")))
}

func TestIsCodeIsMarkupIsRecord(t *testing.T) {
	require.True(t, ContentGo.IsCode())
	require.False(t, ContentMarkdown.IsCode())
	require.True(t, ContentMarkdown.IsMarkup())
	require.True(t, ContentJSON.IsRecord())
	require.True(t, ContentChatLog.IsChatLog())
}

func TestErrorTaxonomyWrapAndIs(t *testing.T) {
	cause := errors.New("disk full")
	err := NewError(ErrDatabase, "write failed", cause)

	require.True(t, errors.Is(err, cause))
	require.True(t, err.IsRetryable())
	require.True(t, IsRetryable(err))
	require.Equal(t, ErrDatabase, CodeOf(err))

	require.True(t, errors.Is(err, Sentinel(ErrDatabase)))
	require.False(t, errors.Is(err, Sentinel(ErrDocumentNotFound)))
}

func TestErrorTaxonomyNonRetryable(t *testing.T) {
	err := NewError(ErrDocumentNotFound, "no such doc", nil)
	require.False(t, err.IsRetryable())
	require.False(t, IsRetryable(err))
}

func TestCodeOfPlainError(t *testing.T) {
	require.Equal(t, ErrInternal, CodeOf(errors.New("plain")))
}
