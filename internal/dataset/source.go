package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alphadesk/tradedash/pkg/httputil"
	"github.com/alphadesk/tradedash/pkg/redis"
)

// Source kinds
const (
	KindRemote = "remote"
	KindLocal  = "local"
)

var (
	// ErrRemoteUnavailable covers transport failures and non-2xx responses
	ErrRemoteUnavailable = errors.New("remote dataset unavailable")

	// ErrLocalMissing means the expected CSV is not on disk
	ErrLocalMissing = errors.New("local dataset missing")
)

// Payload is the raw CSV plus where it came from
type Payload struct {
	Data     []byte `json:"data"`
	Location string `json:"location"`
	Label    string `json:"label"`
}

// Source fetches one CSV document
type Source interface {
	Kind() string
	Location() string
	Fetch(ctx context.Context) (*Payload, error)
}

// RemoteSource GETs a CSV over HTTP
type RemoteSource struct {
	client *httputil.Client
	url    string
	label  string
}

// NewRemoteSource creates a remote source. label is what the dashboard shows.
func NewRemoteSource(client *httputil.Client, url, label string) *RemoteSource {
	return &RemoteSource{client: client, url: url, label: label}
}

func (s *RemoteSource) Kind() string     { return KindRemote }
func (s *RemoteSource) Location() string { return s.url }

// Fetch never returns partial data: any failure yields ErrRemoteUnavailable
func (s *RemoteSource) Fetch(ctx context.Context) (*Payload, error) {
	body, err := s.client.GetBody(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
	return &Payload{Data: body, Location: s.url, Label: s.label}, nil
}

// LocalSource reads a CSV at a fixed path
type LocalSource struct {
	path string
}

func NewLocalSource(path string) *LocalSource { return &LocalSource{path: path} }

func (s *LocalSource) Kind() string     { return KindLocal }
func (s *LocalSource) Location() string { return s.path }

func (s *LocalSource) Fetch(ctx context.Context) (*Payload, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrLocalMissing, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return &Payload{Data: data, Location: s.path, Label: s.path}, nil
}

// LatestLocalSource picks the most recently modified file matching pattern
// across dirs. Ties go to the lexically greatest path.
type LatestLocalSource struct {
	dirs    []string
	pattern string
}

func NewLatestLocalSource(dirs []string, pattern string) *LatestLocalSource {
	return &LatestLocalSource{dirs: dirs, pattern: pattern}
}

func (s *LatestLocalSource) Kind() string { return KindLocal }

func (s *LatestLocalSource) Location() string {
	globs := make([]string, len(s.dirs))
	for i, d := range s.dirs {
		globs[i] = filepath.Join(d, s.pattern)
	}
	return strings.Join(globs, ", ")
}

// Resolve returns the newest matching file
func (s *LatestLocalSource) Resolve() (string, error) {
	type candidate struct {
		path string
		mod  time.Time
	}

	var found []candidate
	for _, dir := range s.dirs {
		matches, err := filepath.Glob(filepath.Join(dir, s.pattern))
		if err != nil {
			return "", fmt.Errorf("glob %s: %w", dir, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() {
				continue
			}
			found = append(found, candidate{path: m, mod: info.ModTime()})
		}
	}

	if len(found) == 0 {
		return "", fmt.Errorf("%w: no %s in %s", ErrLocalMissing, s.pattern, strings.Join(s.dirs, ", "))
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].mod.Equal(found[j].mod) {
			return found[i].mod.After(found[j].mod)
		}
		return found[i].path > found[j].path
	})
	return found[0].path, nil
}

func (s *LatestLocalSource) Fetch(ctx context.Context) (*Payload, error) {
	path, err := s.Resolve()
	if err != nil {
		return nil, err
	}
	p, err := NewLocalSource(path).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	p.Label = filepath.Base(path)
	return p, nil
}

// CachedSource memoizes another source's payload in Redis
type CachedSource struct {
	Source
	cache *redis.Cache
	ttl   time.Duration
}

// NewCachedSource wraps src. A nil or disabled cache makes it a pass-through.
func NewCachedSource(src Source, cache *redis.Cache, ttl time.Duration) *CachedSource {
	return &CachedSource{Source: src, cache: cache, ttl: ttl}
}

func (s *CachedSource) Fetch(ctx context.Context) (*Payload, error) {
	var fresh *Payload
	data, err := s.cache.Remember(ctx, redis.DatasetKey(s.Kind(), s.Location()), s.ttl, func() ([]byte, error) {
		p, err := s.Source.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		fresh = p
		return json.Marshal(p)
	})
	if err != nil {
		return nil, err
	}
	if fresh != nil {
		return fresh, nil
	}

	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		// corrupt entry, go to the source
		return s.Source.Fetch(ctx)
	}
	return &p, nil
}

// Invalidate drops the memoized payload so the next Fetch hits the source
func (s *CachedSource) Invalidate(ctx context.Context) error {
	return s.cache.Delete(ctx, redis.DatasetKey(s.Kind(), s.Location()))
}
