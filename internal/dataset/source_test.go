package dataset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphadesk/tradedash/pkg/config"
	"github.com/alphadesk/tradedash/pkg/httputil"
	"github.com/alphadesk/tradedash/pkg/logger"
	"github.com/alphadesk/tradedash/pkg/redis"
)

func newHTTPClient() *httputil.Client {
	cfg := &config.Config{HTTP: config.HTTPConfig{Timeout: 5 * time.Second}}
	return httputil.New(cfg, logger.Nop())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRemoteSourceOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("sharpe\n1.5\n"))
	}))
	defer server.Close()

	src := NewRemoteSource(newHTTPClient(), server.URL, "GitHub Remote")
	p, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sharpe\n1.5\n", string(p.Data))
	assert.Equal(t, "GitHub Remote", p.Label)
	assert.Equal(t, KindRemote, src.Kind())
}

func TestRemoteSourceNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	p, err := NewRemoteSource(newHTTPClient(), server.URL, "x").Fetch(context.Background())
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, ErrRemoteUnavailable))

	var statusErr *httputil.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestRemoteSourceUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewRemoteSource(newHTTPClient(), url, "x").Fetch(context.Background())
	assert.True(t, errors.Is(err, ErrRemoteUnavailable))
}

func TestLocalSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trading_results.csv")
	writeFile(t, path, "sharpe\n2\n")

	p, err := NewLocalSource(path).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, path, p.Location)

	_, err = NewLocalSource(filepath.Join(dir, "nope.csv")).Fetch(context.Background())
	assert.True(t, errors.Is(err, ErrLocalMissing))
}

func TestLatestLocalSource(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "streamlit deployment", "trading_results_a.csv")
	b := filepath.Join(root, "trading_results_b.csv")
	writeFile(t, a, "sharpe\n1\n")
	writeFile(t, b, "sharpe\n2\n")

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(b, old, old))

	src := NewLatestLocalSource([]string{filepath.Join(root, "streamlit deployment"), root}, "trading_results*.csv")
	path, err := src.Resolve()
	require.NoError(t, err)
	assert.Equal(t, a, path)

	p, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "trading_results_a.csv", p.Label)
}

func TestLatestLocalSourceNoMatch(t *testing.T) {
	src := NewLatestLocalSource([]string{t.TempDir()}, "trading_results*.csv")

	_, err := src.Fetch(context.Background())
	assert.True(t, errors.Is(err, ErrLocalMissing))
}

type countingSource struct {
	LocalSource
	calls int
}

func (s *countingSource) Fetch(ctx context.Context) (*Payload, error) {
	s.calls++
	return s.LocalSource.Fetch(ctx)
}

func TestCachedSourceDisabledPassThrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.csv")
	writeFile(t, path, "sharpe\n3\n")

	client, err := redis.New(&config.Config{})
	require.NoError(t, err)

	inner := &countingSource{LocalSource: LocalSource{path: path}}
	src := NewCachedSource(inner, redis.NewCache(client, "test"), time.Minute)

	for i := 0; i < 2; i++ {
		p, err := src.Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "sharpe\n3\n", string(p.Data))
	}
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, KindLocal, src.Kind())
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.csv")
	writeFile(t, path, "sharpe,win_rate\n1.1,0.6\n")

	ds, err := NewLoader(logger.Nop()).Load(context.Background(), NewLocalSource(path))
	require.NoError(t, err)

	assert.Equal(t, KindLocal, ds.Kind)
	assert.Equal(t, 1, ds.Table.Len())
	assert.False(t, ds.LoadedAt.IsZero())
}

func TestLoaderPropagatesSourceError(t *testing.T) {
	_, err := NewLoader(logger.Nop()).Load(context.Background(), NewLocalSource(filepath.Join(t.TempDir(), "x.csv")))
	assert.True(t, errors.Is(err, ErrLocalMissing))
}

func TestLoaderRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	writeFile(t, path, "")

	_, err := NewLoader(logger.Nop()).Load(context.Background(), NewLocalSource(path))
	assert.True(t, errors.Is(err, ErrEmpty))
}
