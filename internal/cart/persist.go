package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// KeyPrefix namespaces persisted carts; the full key is KeyPrefix:<session>.
const KeyPrefix = "furniture-cart"

func Key(session string) string {
	return KeyPrefix + ":" + session
}

// Persister stores the serialized state under a key. Load reports ok=false
// when nothing has been saved yet.
type Persister interface {
	Load(ctx context.Context, key string) (st State, ok bool, err error)
	Save(ctx context.Context, key string, st State) error
}

func encodeState(st State) ([]byte, error) {
	return json.Marshal(st)
}

func decodeState(raw []byte) (State, error) {
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode cart state: %w", err)
	}
	return st, nil
}

// MemoryPersister keeps serialized states in process memory.
type MemoryPersister struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{m: map[string][]byte{}}
}

func (p *MemoryPersister) Load(_ context.Context, key string) (State, bool, error) {
	p.mu.RLock()
	raw, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return State{}, false, nil
	}
	st, err := decodeState(raw)
	return st, err == nil, err
}

func (p *MemoryPersister) Save(_ context.Context, key string, st State) error {
	raw, err := encodeState(st)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.m[key] = raw
	p.mu.Unlock()
	return nil
}

// FilePersister writes one JSON file per key under Dir.
type FilePersister struct {
	Dir string
}

func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cart dir: %w", err)
	}
	return &FilePersister{Dir: dir}, nil
}

var fileNameReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_")

func (p *FilePersister) path(key string) string {
	return filepath.Join(p.Dir, fileNameReplacer.Replace(key)+".json")
}

func (p *FilePersister) Load(_ context.Context, key string) (State, bool, error) {
	raw, err := os.ReadFile(p.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	st, err := decodeState(raw)
	return st, err == nil, err
}

// Save replaces the file atomically so a crash never leaves half a cart.
func (p *FilePersister) Save(_ context.Context, key string, st State) error {
	raw, err := encodeState(st)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(p.Dir, ".cart-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p.path(key))
}
