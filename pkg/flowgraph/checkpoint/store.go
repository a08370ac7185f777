// Package checkpoint persists per-node snapshots of a run so a conversation
// can be inspected or resumed after the process exits.
package checkpoint

import (
	"errors"
	"fmt"
	"time"
)

// Store persists checkpoints.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a checkpoint for a run at a specific node, assigning the
	// next sequence number of the run. Overwrites an existing (runID, nodeID) entry.
	Save(runID, nodeID string, data []byte) error

	// Load retrieves a checkpoint.
	// Returns ErrNotFound if it doesn't exist.
	Load(runID, nodeID string) ([]byte, error)

	// List returns all checkpoints for a run, ordered by sequence.
	// Returns an empty slice (not an error) if the run has none.
	List(runID string) ([]Info, error)

	// Delete removes a specific checkpoint. Missing entries are not an error.
	Delete(runID, nodeID string) error

	// DeleteRun removes all checkpoints for a run. Missing runs are not an error.
	DeleteRun(runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading full state.
type Info struct {
	RunID     string
	NodeID    string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")

	// ErrCorrupt indicates stored bytes could not be decoded.
	ErrCorrupt = errors.New("checkpoint corrupt")

	// ErrUnknownBackend indicates Open was given an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown checkpoint backend")
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Open creates a store by backend name. target is the database path for
// sqlite and the server address for redis; memory ignores it. redisOpts
// apply to the redis backend only.
func Open(backend, target string, redisOpts ...RedisOption) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		if target == "" {
			return nil, fmt.Errorf("sqlite checkpoint store: path required")
		}
		return NewSQLiteStore(target)
	case BackendRedis:
		if target == "" {
			return nil, fmt.Errorf("redis checkpoint store: address required")
		}
		return NewRedisStore(target, redisOpts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
