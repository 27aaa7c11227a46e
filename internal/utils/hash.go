package utils

import "hash/fnv"

// HashBytesToUint64 is a stable FNV-64a digest used for deterministic fakes.
func HashBytesToUint64(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
