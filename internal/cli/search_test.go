package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunSearchModesAgainstIngestedDocument(t *testing.T) {
	dir := t.TempDir()
	oldCfgDir := cfgDir
	cfgDir = dir
	t.Cleanup(func() { cfgDir = oldCfgDir })

	oldIngestCollection, oldQuiet, oldWatch := ingestCollection, quietFlag, watchFlag
	ingestCollection, quietFlag, watchFlag = "default", true, false
	t.Cleanup(func() { ingestCollection, quietFlag, watchFlag = oldIngestCollection, oldQuiet, oldWatch })

	a, err := newApp(context.Background())
	require.NoError(t, err)
	_, err = a.store.CreateCollection(context.Background(), mustDefaultCollection("default"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	require.NoError(t, runIngest(ingestCmd, []string{"data:,gophers burrow underground and this mentions search explicitly"}))

	oldSearchCollection, oldSearchMode, oldSearchTopK := searchCollection, searchMode, searchTopK
	searchCollection, searchTopK = "default", 5
	t.Cleanup(func() { searchCollection, searchMode, searchTopK = oldSearchCollection, oldSearchMode, oldSearchTopK })

	for _, mode := range []string{"hybrid", "vector", "keyword"} {
		searchMode = mode
		require.NoError(t, runSearch(searchCmd, []string{"gophers"}), "mode=%s", mode)
	}
}

func TestRunSearchRejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	oldCfgDir := cfgDir
	cfgDir = dir
	t.Cleanup(func() { cfgDir = oldCfgDir })

	oldSearchCollection, oldSearchMode, oldSearchTopK := searchCollection, searchMode, searchTopK
	searchCollection, searchMode, searchTopK = "default", "fuzzy", 5
	t.Cleanup(func() { searchCollection, searchMode, searchTopK = oldSearchCollection, oldSearchMode, oldSearchTopK })

	a, err := newApp(context.Background())
	require.NoError(t, err)
	_, err = a.store.CreateCollection(context.Background(), mustDefaultCollection("default"))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	err = runSearch(searchCmd, []string{"gophers"})
	require.Error(t, err)
}
