package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	fileMagic   uint32 = 0x46524f53 // 'FROS'
	fileVersion uint16 = 1
	// [magic u32][version u16][reserved u16][length u32][crc32 u32][payload ...]
	headerSize = 16
	tmpSuffix  = ".tmp"
)

// FileBackend stores every key in its own file under a root directory.
//
// Each path segment of a key is escaped into a directory or file name. Writes
// go to a temporary file which is synced and then renamed over the target, so
// a reader never sees a partial value.
type FileBackend struct {
	root   string
	mu     sync.RWMutex
	closed bool
}

// NewFile creates a file backend rooted at dir, creating it if needed.
func NewFile(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create %s: %w", dir, err)
	}
	return &FileBackend{root: dir}, nil
}

// path maps a key to a file path, rejecting keys that could escape the root.
func (f *FileBackend) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return "", ErrInvalidKey
	}
	segments := strings.Split(key, "/")
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, f.root)
	for _, s := range segments {
		if s == "" || s == "." || s == ".." || strings.HasSuffix(s, tmpSuffix) {
			return "", ErrInvalidKey
		}
		parts = append(parts, url.PathEscape(s))
	}
	return filepath.Join(parts...), nil
}

func encodeFile(value []byte) []byte {
	out := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint32(out[0:], fileMagic)
	binary.BigEndian.PutUint16(out[4:], fileVersion)
	binary.BigEndian.PutUint32(out[8:], uint32(len(value)))
	binary.BigEndian.PutUint32(out[12:], crc32.ChecksumIEEE(value))
	copy(out[headerSize:], value)
	return out
}

func decodeFile(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: short file", ErrCorrupted)
	}
	if binary.BigEndian.Uint32(data[0:]) != fileMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupted)
	}
	if v := binary.BigEndian.Uint16(data[4:]); v != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupted, v)
	}
	body := data[headerSize:]
	if int(binary.BigEndian.Uint32(data[8:])) != len(body) {
		return nil, fmt.Errorf("%w: length mismatch", ErrCorrupted)
	}
	if crc32.ChecksumIEEE(body) != binary.BigEndian.Uint32(data[12:]) {
		return nil, fmt.Errorf("%w: crc mismatch", ErrCorrupted)
	}
	return body, nil
}

// Get implements Backend.
func (f *FileBackend) Get(key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrClosed
	}
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeFile(data)
}

// Put implements Backend.
func (f *FileBackend) Put(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	path, err := f.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp := path + tmpSuffix
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err = file.Write(encodeFile(value)); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err = file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err = file.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err = os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Delete implements Backend.
//
// The write lock makes the existence check and the removal atomic.
func (f *FileBackend) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	path, err := f.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// List implements Backend.
func (f *FileBackend) List(prefix string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrClosed
	}
	var keys []string
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(path, tmpSuffix) {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		segments := strings.Split(filepath.ToSlash(rel), "/")
		for i, s := range segments {
			if segments[i], err = url.PathUnescape(s); err != nil {
				return err
			}
		}
		key := strings.Join(segments, "/")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Exists implements Backend.
func (f *FileBackend) Exists(key string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return false, ErrClosed
	}
	path, err := f.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// Close implements Backend.
func (f *FileBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}
