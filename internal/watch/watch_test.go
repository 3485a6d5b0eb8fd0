package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatchesValidDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := New([]string{dir}, Options{Extensions: []string{".go"}})
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Stop())
}

func TestNewRejectsMissingDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := New([]string{filepath.Join(dir, "nope")}, Options{})
	assert.Error(t, err)
}

func TestSingleFileChangeFiresCallbackAfterDebounce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := New([]string{dir}, Options{Extensions: []string{".go"}, Debounce: 100 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	called := make(chan []string, 1)
	w.Start(context.Background(), func(files []string) { called <- files })
	time.Sleep(50 * time.Millisecond)

	target := filepath.Join(dir, "test.go")
	require.NoError(t, os.WriteFile(target, []byte("package main"), 0o644))

	select {
	case files := <-called:
		require.Len(t, files, 1)
		assert.Equal(t, target, files[0])
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked after file change")
	}
}

func TestMultipleFileChangesWithinDebounceAreBatched(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := New([]string{dir}, Options{Extensions: []string{".go"}, Debounce: 200 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	called := make(chan []string, 1)
	w.Start(context.Background(), func(files []string) { called <- files })
	time.Sleep(50 * time.Millisecond)

	f1 := filepath.Join(dir, "a.go")
	f2 := filepath.Join(dir, "b.go")
	require.NoError(t, os.WriteFile(f1, []byte("package main"), 0o644))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(f2, []byte("package main"), 0o644))

	select {
	case files := <-called:
		assert.Len(t, files, 2)
		assert.Contains(t, files, f1)
		assert.Contains(t, files, f2)
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked for batched changes")
	}
}

func TestSameFileModifiedTwiceAppearsOnceInBatch(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := New([]string{dir}, Options{Extensions: []string{".go"}, Debounce: 200 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	called := make(chan []string, 1)
	w.Start(context.Background(), func(files []string) { called <- files })
	time.Sleep(50 * time.Millisecond)

	target := filepath.Join(dir, "test.go")
	require.NoError(t, os.WriteFile(target, []byte("v1"), 0o644))
	time.Sleep(40 * time.Millisecond)
	require.NoError(t, os.WriteFile(target, []byte("v2"), 0o644))

	select {
	case files := <-called:
		require.Len(t, files, 1, "repeated writes to the same file coalesce into one entry")
		assert.Equal(t, target, files[0])
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestExtensionFilteringIgnoresUnwatchedExtensions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := New([]string{dir}, Options{Extensions: []string{".go", ".md"}, Debounce: 150 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var seen []string
	called := make(chan struct{}, 4)
	w.Start(context.Background(), func(files []string) {
		mu.Lock()
		seen = append(seen, files...)
		mu.Unlock()
		called <- struct{}{}
	})
	time.Sleep(50 * time.Millisecond)

	goFile := filepath.Join(dir, "a.go")
	txtFile := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(goFile, []byte("package main"), 0o644))
	require.NoError(t, os.WriteFile(txtFile, []byte("notes"), 0o644))

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, goFile)
	assert.NotContains(t, seen, txtFile)
}

func TestPauseAccumulatesAndResumeFlushes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := New([]string{dir}, Options{Extensions: []string{".go"}, Debounce: 100 * time.Millisecond})
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var seen []string
	called := make(chan struct{}, 4)
	w.Start(context.Background(), func(files []string) {
		mu.Lock()
		seen = append(seen, files...)
		mu.Unlock()
		called <- struct{}{}
	})
	time.Sleep(50 * time.Millisecond)

	w.Pause()
	pausedFile := filepath.Join(dir, "paused.go")
	require.NoError(t, os.WriteFile(pausedFile, []byte("package main"), 0o644))
	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	assert.Empty(t, seen, "no callback fires while paused")
	mu.Unlock()

	w.Resume()
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("resume did not flush accumulated changes")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, pausedFile)
}

func TestStopIsIdempotentAndConcurrencySafe(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := New([]string{dir}, Options{})
	require.NoError(t, err)
	w.Start(context.Background(), func(files []string) {})
	time.Sleep(30 * time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, w.Stop())
		}()
	}
	wg.Wait()
}

func TestContextCancellationStopsLoop(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	w, err := New([]string{dir}, Options{})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx, func(files []string) {})
	time.Sleep(30 * time.Millisecond)

	start := time.Now()
	cancel()
	<-w.doneCh
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
