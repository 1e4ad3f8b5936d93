package cache

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// maxNameAttempts bounds how many fresh names createEntryFile tries before
// giving up.
const maxNameAttempts = 16

// entry is one indexed cache entry. value either re-reads path (lazy) or
// returns a value already in memory.
type entry[T any] struct {
	path  string
	key   Key
	value func() (T, error)
}

// EntryInfo describes an indexed entry. Pass it to Manager.GetEntry to read
// the entry back.
type EntryInfo struct {
	Path        string
	Key         Key
	Fingerprint string

	// id is the key record the entry is indexed under.
	id string
}

// writeEntry writes the key record followed by the value record.
func writeEntry(w io.Writer, keyRecord []byte, value any) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(keyRecord); err != nil {
		return err
	}
	if err := msgpack.NewEncoder(bw).Encode(value); err != nil {
		return err
	}
	return bw.Flush()
}

// readKeyRecord opens path and returns its raw key record. The returned
// decoder is positioned at the value record; the caller closes the file.
func readKeyRecord(path string) (*os.File, *msgpack.Decoder, msgpack.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	dec := msgpack.NewDecoder(f)
	raw, err := dec.DecodeRaw()
	if err != nil {
		f.Close()
		return nil, nil, nil, fmt.Errorf("decode key record: %w", err)
	}
	return f, dec, raw, nil
}

// readValue reads the value record of the entry file at path.
func readValue[T any](path string) (T, error) {
	var v T
	f, err := os.Open(path)
	if err != nil {
		return v, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	if err := dec.Skip(); err != nil {
		return v, fmt.Errorf("%w: %s: skip key record: %w", ErrStorageRead, path, err)
	}
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %s: decode value record: %w", ErrStorageRead, path, err)
	}
	return v, nil
}

// createEntryFile creates a new, uniquely named entry file in dir.
func createEntryFile(dir string) (*os.File, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		path := filepath.Join(dir, uuid.NewString()+EntrySuffix)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStorageWrite, err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("%w: no unique entry name in %s after %d attempts", ErrStorageWrite, dir, maxNameAttempts)
}
