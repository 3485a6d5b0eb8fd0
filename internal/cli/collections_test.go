package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionsLifecycle(t *testing.T) {
	dir := t.TempDir()
	oldCfgDir := cfgDir
	cfgDir = dir
	t.Cleanup(func() { cfgDir = oldCfgDir })

	require.NoError(t, runCollectionsCreate(collectionsCreateCmd, []string{"notes"}))

	a, err := newApp(context.Background())
	require.NoError(t, err)
	defer a.Close()

	col, err := a.store.GetCollection(context.Background(), "notes")
	require.NoError(t, err)
	assert.Equal(t, "notes", col.Name)
	assert.Equal(t, a.cfg.Chunking.MaxTokens, col.Settings.MaxTokens)

	require.NoError(t, runCollectionsShow(collectionsShowCmd, []string{"notes"}))
	require.NoError(t, runCollectionsListDocs(collectionsListDocsCmd, []string{"notes"}))
	require.NoError(t, runCollectionsDelete(collectionsDeleteCmd, []string{"notes"}))

	_, err = a.store.GetCollection(context.Background(), "notes")
	assert.Error(t, err, "collection should be gone after delete")
}
