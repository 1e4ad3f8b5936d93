package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// NoMemoizeArg is the reserved keyword argument that bypasses the cache for
// a single call. It is never part of a Key and never forwarded to the
// wrapped function.
const NoMemoizeArg = "no_memoize"

// Args carries the arguments of one call.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// Key identifies a call by its arguments.
//
// Keyword arguments are stored as two parallel slices ordered by name, so
// keys built from the same name/value pairs are equal whatever the order the
// caller supplied them in.
type Key struct {
	Namespace     string   `msgpack:"ns,omitempty"`
	Positional    []any    `msgpack:"args"`
	KeywordNames  []string `msgpack:"kwnames"`
	KeywordValues []any    `msgpack:"kwvalues"`
}

// NewKey derives the key for a call. NoMemoizeArg is dropped.
func NewKey(namespace string, args Args) Key {
	names := make([]string, 0, len(args.Keyword))
	for name := range args.Keyword {
		if name == NoMemoizeArg {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]any, len(names))
	for i, name := range names {
		values[i] = args.Keyword[name]
	}

	positional := make([]any, len(args.Positional))
	copy(positional, args.Positional)

	return Key{
		Namespace:     namespace,
		Positional:    positional,
		KeywordNames:  names,
		KeywordValues: values,
	}
}

// Canonical returns the encoding that identifies the key. It is also the
// exact key record written to entry files.
//
// The entries of every encoded map, including structs and maps nested in
// arguments, are ordered by their encoded key, and integers are encoded
// compactly, so int(1) and int64(1) produce the same key.
func (k Key) Canonical() ([]byte, error) {
	// nil and empty slices must encode identically
	if k.Positional == nil {
		k.Positional = []any{}
	}
	if k.KeywordNames == nil {
		k.KeywordNames = []string{}
	}
	if k.KeywordValues == nil {
		k.KeywordValues = []any{}
	}
	if len(k.KeywordNames) != len(k.KeywordValues) {
		return nil, fmt.Errorf("%w: %d keyword names for %d values", ErrInvalidKey, len(k.KeywordNames), len(k.KeywordValues))
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(k); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	canonical, err := sortedRecord(msgpack.NewDecoder(&buf))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return canonical, nil
}

// sortedRecord re-emits the next msgpack value read from dec with the
// entries of every map ordered by their encoded key, then value. Arrays keep
// their order; scalars and extensions are copied as is.
func sortedRecord(dec *msgpack.Decoder) ([]byte, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	enc := msgpack.NewEncoder(&out)

	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		pairs := make([][2][]byte, n)
		for i := range pairs {
			if pairs[i][0], err = sortedRecord(dec); err != nil {
				return nil, err
			}
			if pairs[i][1], err = sortedRecord(dec); err != nil {
				return nil, err
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			if d := bytes.Compare(pairs[i][0], pairs[j][0]); d != 0 {
				return d < 0
			}
			return bytes.Compare(pairs[i][1], pairs[j][1]) < 0
		})
		if err := enc.EncodeMapLen(n); err != nil {
			return nil, err
		}
		for _, p := range pairs {
			out.Write(p[0])
			out.Write(p[1])
		}

	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		if err := enc.EncodeArrayLen(n); err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			elem, err := sortedRecord(dec)
			if err != nil {
				return nil, err
			}
			out.Write(elem)
		}

	default:
		raw, err := dec.DecodeRaw()
		if err != nil {
			return nil, err
		}
		out.Write(raw)
	}
	return out.Bytes(), nil
}

// Fingerprint returns a short, stable digest of the key for logs and
// listings. Format: first 16 hex characters of SHA-256(canonical key).
func (k Key) Fingerprint() (string, error) {
	canonical, err := k.Canonical()
	if err != nil {
		return "", err
	}
	return fingerprint(canonical), nil
}

func fingerprint(canonical []byte) string {
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:8])
}

// String renders the key as (positional, names, values).
func (k Key) String() string {
	s := fmt.Sprintf("(%v, %v, %v)", k.Positional, k.KeywordNames, k.KeywordValues)
	if k.Namespace != "" {
		return k.Namespace + ":" + s
	}
	return s
}

// decodeKey parses a key record read from an entry file. Maps inside
// arguments decode to map[string]any when every key is a string and to
// map[any]any otherwise.
func decodeKey(record []byte) (Key, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(record))
	dec.SetMapDecoder(decodeArgMap)

	var k Key
	if err := dec.Decode(&k); err != nil {
		return Key{}, err
	}
	return k, nil
}

func decodeArgMap(dec *msgpack.Decoder) (any, error) {
	n, err := dec.DecodeMapLen()
	if err != nil || n == -1 {
		return nil, err
	}

	keys := make([]any, n)
	values := make([]any, n)
	stringKeys := true
	for i := 0; i < n; i++ {
		if keys[i], err = dec.DecodeInterface(); err != nil {
			return nil, err
		}
		if values[i], err = dec.DecodeInterface(); err != nil {
			return nil, err
		}
		if _, ok := keys[i].(string); !ok {
			stringKeys = false
		}
	}

	if stringKeys {
		m := make(map[string]any, n)
		for i, key := range keys {
			m[key.(string)] = values[i]
		}
		return m, nil
	}
	m := make(map[any]any, n)
	for i, key := range keys {
		if key != nil && !reflect.TypeOf(key).Comparable() {
			return nil, fmt.Errorf("unsupported map key type %T", key)
		}
		m[key] = values[i]
	}
	return m, nil
}
