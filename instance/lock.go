// Package instance guards a data directory against two processes
// opening it at once, via a LOCK sentinel file naming the instance
// that holds it.
package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const lockFileName = "LOCK"

// Lock is a held claim on a data directory; release it with Release.
type Lock struct {
	path string
	id   uuid.UUID
}

// Acquire claims dataDir for this process, creating the directory if
// needed. It fails if a LOCK file already exists, naming the instance
// id that holds it.
func Acquire(dataDir string) (*Lock, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(dataDir, lockFileName)
	if raw, err := os.ReadFile(path); err == nil {
		return nil, fmt.Errorf("data directory %q is already locked by instance %s", dataDir, strings.TrimSpace(string(raw)))
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	id := uuid.New()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("data directory %q is already locked", dataDir)
		}
		return nil, err
	}
	defer f.Close()

	if _, err := f.WriteString(id.String()); err != nil {
		os.Remove(path)
		return nil, err
	}

	return &Lock{path: path, id: id}, nil
}

// ID returns this process's instance id.
func (l *Lock) ID() uuid.UUID { return l.id }

// Release removes the LOCK sentinel, allowing another process to
// Acquire the same data directory.
func (l *Lock) Release() error {
	return os.Remove(l.path)
}
