package resource

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stringParser(payload []byte) (string, error) {
	return string(payload), nil
}

func TestFetcherInitialFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.txt")
	assert.NoError(t, os.WriteFile(path, []byte("hello"), 0o666))

	fetcher := NewFetcher[string]("test", 0, NewFileVehicle(path), stringParser, nil)
	defer func() { _ = fetcher.Close() }()

	elm, err := fetcher.Initial()
	assert.NoError(t, err)
	assert.Equal(t, "hello", elm)
	assert.Equal(t, "test", fetcher.Name())
	assert.False(t, fetcher.UpdatedAt().IsZero())
}

func TestFetcherUpdateUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.txt")
	assert.NoError(t, os.WriteFile(path, []byte("hello"), 0o666))

	fetcher := NewFetcher[string]("test", 0, NewFileVehicle(path), stringParser, nil)
	defer func() { _ = fetcher.Close() }()

	_, err := fetcher.Initial()
	assert.NoError(t, err)

	_, same, err := fetcher.Update()
	assert.NoError(t, err)
	assert.True(t, same)
}

func TestFetcherUpdateChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.txt")
	assert.NoError(t, os.WriteFile(path, []byte("hello"), 0o666))

	fetcher := NewFetcher[string]("test", 0, NewFileVehicle(path), stringParser, nil)
	defer func() { _ = fetcher.Close() }()

	_, err := fetcher.Initial()
	assert.NoError(t, err)

	assert.NoError(t, os.WriteFile(path, []byte("world"), 0o666))

	elm, same, err := fetcher.Update()
	assert.NoError(t, err)
	assert.False(t, same)
	assert.Equal(t, "world", elm)
}

func TestFetcherConcurrentUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.txt")
	assert.NoError(t, os.WriteFile(path, []byte("hello"), 0o666))

	fetcher := NewFetcher[string]("test", 0, NewFileVehicle(path), stringParser, nil)
	defer func() { _ = fetcher.Close() }()

	_, err := fetcher.Initial()
	assert.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, _, err := fetcher.Update()
				assert.NoError(t, err)
				assert.False(t, fetcher.UpdatedAt().IsZero())
			}
		}()
	}
	wg.Wait()
}

func TestFetcherInitialMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.txt")

	fetcher := NewFetcher[string]("test", 0, NewFileVehicle(path), stringParser, nil)
	defer func() { _ = fetcher.Close() }()

	_, err := fetcher.Initial()
	assert.Error(t, err)
}
