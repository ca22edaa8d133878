package audiostore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound    = errors.New("audio artifact not found")
	ErrInvalidName = errors.New("invalid audio file name")
)

// Dir owns the directory of synthesized audio artifacts and the public URL
// space they are served under.
type Dir struct {
	root    string
	baseURL string

	mu        sync.Mutex
	lastStamp int64
}

// New creates the artifact directory if absent.
func New(root, publicBaseURL string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &Dir{
		root:    root,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// NextName returns a collision-free artifact name. The millisecond timestamp
// component is bumped when two calls land on the same tick.
func (d *Dir) NextName() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	stamp := time.Now().UnixMilli()
	if stamp <= d.lastStamp {
		stamp = d.lastStamp + 1
	}
	d.lastStamp = stamp
	return fmt.Sprintf("output-%d.mp3", stamp)
}

// Write stores artifact bytes under name and returns the on-disk path.
func (d *Dir) Write(name string, data []byte) (string, error) {
	if !validName(name) {
		return "", ErrInvalidName
	}
	path := filepath.Join(d.root, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write audio artifact: %w", err)
	}
	return path, nil
}

// Open opens a stored artifact for streaming. Names carrying path separators
// or parent-directory segments are rejected before touching the filesystem.
func (d *Dir) Open(name string) (*os.File, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}

	f, err := os.Open(filepath.Join(d.root, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open audio artifact: %w", err)
	}
	return f, nil
}

// URL returns the externally fetchable address of a stored artifact.
func (d *Dir) URL(name string) string {
	return d.baseURL + "/audio/" + name
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	return true
}
