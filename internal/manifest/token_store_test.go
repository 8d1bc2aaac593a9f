package manifest

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

func TestFileTokenStore_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileTokenStore(path)

	token, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.Save("abc123"))
	token, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileTokenStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, writeFile(path, "{not json"))

	_, err := NewFileTokenStore(path).Load()
	assert.Error(t, err)
}

func TestNew_IgnoresCorruptTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, writeFile(path, "{not json"))

	c, err := New("http://localhost:1111", WithTokenStore(NewFileTokenStore(path)))
	require.NoError(t, err)
	assert.False(t, c.HasSession())
}

func TestMemoryTokenStore_Concurrent(t *testing.T) {
	s := &MemoryTokenStore{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Save("t")
			_, _ = s.Load()
		}()
	}
	wg.Wait()

	token, _ := s.Load()
	assert.Equal(t, "t", token)
	require.NoError(t, s.Clear())
	token, _ = s.Load()
	assert.Empty(t, token)
}
