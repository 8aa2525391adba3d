package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultStorageName is the file name of the persisted cart.
const DefaultStorageName = "cart-storage.json"

// Storage loads and saves the whole cart as one blob.
type Storage interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// FileStorage persists the cart as JSON in a single file. Writes go through a
// temporary file and a rename so a crash never leaves a half-written cart.
type FileStorage struct {
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultPath returns <user config dir>/storefront/cart-storage.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "storefront", DefaultStorageName), nil
}

func (f *FileStorage) Path() string {
	return f.path
}

// Load returns an empty state when the file does not exist yet.
func (f *FileStorage) Load(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read cart %s: %w", f.path, err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("decode cart %s: %w", f.path, err)
	}
	return state, nil
}

func (f *FileStorage) Save(ctx context.Context, state State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state.Items == nil {
		state.Items = []LineItem{}
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".cart-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cart: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp cart: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp cart: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace cart %s: %w", f.path, err)
	}
	return nil
}

// MemoryStorage keeps the cart in memory. LoadErr and SaveErr inject failures.
type MemoryStorage struct {
	mu      sync.Mutex
	state   State
	saves   int
	LoadErr error
	SaveErr error
}

func NewMemoryStorage(initial State) *MemoryStorage {
	return &MemoryStorage{state: cloneState(initial)}
}

func (m *MemoryStorage) Load(context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return State{}, m.LoadErr
	}
	return cloneState(m.state), nil
}

func (m *MemoryStorage) Save(_ context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.saves++
	m.state = cloneState(state)
	return nil
}

// Snapshot returns what was last saved.
func (m *MemoryStorage) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

// Saves reports how many successful saves happened.
func (m *MemoryStorage) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func cloneState(s State) State {
	items := make([]LineItem, len(s.Items))
	copy(items, s.Items)
	return State{Items: items}
}
