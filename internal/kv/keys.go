package kv

import (
	"github.com/chaisql/hashkv/internal/encoding"
)

// Namespaces of the keys stored in Pebble.
// The index engine owns every key starting with NamespaceIndex.
const (
	namespaceHash     byte = 'h'
	namespaceKeyspace byte = 'k'
	NamespaceIndex    byte = 'x'
	namespaceZSet     byte = 'z'
)

// Types of values held by a key.
const (
	typeHash byte = 'h'
	typeZSet byte = 'z'
)

const (
	zsetMember byte = 'm'
	zsetScore  byte = 's'
)

// keyspaceKey returns the key listing k in the keyspace.
// The raw key is appended as is so the keyspace sorts like the keys themselves.
func keyspaceKey(k string) []byte {
	buf := make([]byte, 0, len(k)+1)
	buf = append(buf, namespaceKeyspace)
	return append(buf, k...)
}

// hashPrefix returns the prefix shared by every field of the hash k.
func hashPrefix(k string) []byte {
	return encoding.EncodeText([]byte{namespaceHash}, k)
}

func hashFieldKey(k, field string) []byte {
	return append(hashPrefix(k), field...)
}

func zsetPrefix(k string) []byte {
	return encoding.EncodeText([]byte{namespaceZSet}, k)
}

func zsetMemberPrefix(k string) []byte {
	return append(zsetPrefix(k), zsetMember)
}

func zsetMemberKey(k, member string) []byte {
	return append(zsetMemberPrefix(k), member...)
}

func zsetScorePrefix(k string) []byte {
	return append(zsetPrefix(k), zsetScore)
}

func zsetScoreKey(k, member string, score float64) []byte {
	key := encoding.EncodeFloat64(zsetScorePrefix(k), score)
	return append(key, member...)
}
