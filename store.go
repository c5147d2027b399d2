package das

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const (
	MemoryStoreType   = "MemoryStore"
	LocalStoreType    = "LocalStore"
	dirPermissionBits = 0755
)

// Sink receives encoded variables
type Sink interface {
	Put(key string, val io.Reader) error
}

// Store is a key value store holding encoded variables and arrays
type Store interface {
	Sink
	Get(key string) (io.ReadCloser, error)
	Type() string
}

type MemoryStore struct {
	lk   sync.Mutex
	data map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: map[string][]byte{},
	}
}

func (s *MemoryStore) Type() string { return MemoryStoreType }

func (s *MemoryStore) Get(key string) (io.ReadCloser, error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotfound, key)
	}
	return ioutil.NopCloser(bytes.NewBuffer(d)), nil
}

func (s *MemoryStore) Put(key string, val io.Reader) error {
	d, err := ioutil.ReadAll(val)
	if err != nil {
		return err
	}

	s.lk.Lock()
	defer s.lk.Unlock()
	s.data[key] = d

	return nil
}

// Keys lists stored keys under prefix in sorted order
func (s *MemoryStore) Keys(prefix string) []string {
	s.lk.Lock()
	defer s.lk.Unlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

type LocalStore struct {
	base string
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(base string) (*LocalStore, error) {
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(base, dirPermissionBits); err != nil {
		return nil, err
	}

	return &LocalStore{
		base: base,
	}, nil
}

func (s *LocalStore) Type() string { return LocalStoreType }

func (s *LocalStore) Get(key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.base, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotfound, key)
	}
	return f, err
}

func (s *LocalStore) Put(key string, val io.Reader) error {
	path := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), dirPermissionBits); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, val); err != nil {
		return err
	}
	if c, ok := val.(io.Closer); ok {
		return c.Close()
	}
	return f.Close()
}
