// Package cache provides disk-persistent memoization for expensive,
// deterministic computations.
//
// A Manager owns a storage directory of entry files (one msgpack-encoded key
// record followed by one value record per file) and an in-memory index that
// is rebuilt by scanning the directory at construction. Memoize wraps a Func
// so that calls with the same arguments, in this process or a later one,
// return the stored result instead of recomputing it.
//
// Values are loaded lazily by default: a lookup re-reads the entry file each
// time it is served. An eager Manager decodes every value during the scan.
package cache
