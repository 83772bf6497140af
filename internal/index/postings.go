package index

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/chaisql/hashkv/internal/encoding"
	"github.com/chaisql/hashkv/internal/kv"
)

// Key layout, below kv.NamespaceIndex:
//
//	'd' name                                   -> definition
//	'm' text(name) docID                       -> membership
//	'p' text(name) text(field) text(token) docID  (TEXT, TAG)
//	'p' text(name) text(field) float64 docID      (NUMERIC)
const (
	keyDefinition byte = 'd'
	keyMember     byte = 'm'
	keyPosting    byte = 'p'
)

func definitionPrefix() []byte {
	return []byte{kv.NamespaceIndex, keyDefinition}
}

func definitionKey(name string) []byte {
	return append(definitionPrefix(), name...)
}

func memberPrefix(name string) []byte {
	return encoding.EncodeText([]byte{kv.NamespaceIndex, keyMember}, name)
}

func memberKey(name, id string) []byte {
	return append(memberPrefix(name), id...)
}

// postingIndexPrefix covers every posting key of the index.
func postingIndexPrefix(name string) []byte {
	return encoding.EncodeText([]byte{kv.NamespaceIndex, keyPosting}, name)
}

func fieldPrefix(name, field string) []byte {
	return encoding.EncodeText(postingIndexPrefix(name), field)
}

func tokenPrefix(name, field, token string) []byte {
	return encoding.EncodeText(fieldPrefix(name, field), token)
}

func numericPrefix(name, field string, f float64) []byte {
	return encoding.EncodeFloat64(fieldPrefix(name, field), f)
}

// tokenize splits s into lowercase words made of letters and digits.
func tokenize(s string) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return dedup(words)
}

// splitTags splits s on commas, trimming and lowercasing every tag.
func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			tags = append(tags, t)
		}
	}
	return dedup(tags)
}

func dedup(s []string) []string {
	if len(s) < 2 {
		return s
	}
	sort.Strings(s)
	out := s[:1]
	for _, v := range s[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// postings returns the posting keys of the document id for the index d.
// Values that cannot be parsed for their field type are not indexed.
func postings(d *Definition, id string, rec kv.Record) [][]byte {
	var keys [][]byte

	for _, f := range d.Fields {
		v, ok := rec[f.Name]
		if !ok {
			continue
		}

		switch f.Type {
		case Text:
			for _, w := range tokenize(v) {
				keys = append(keys, append(tokenPrefix(d.Name, f.Name, w), id...))
			}
		case Tag:
			for _, t := range splitTags(v) {
				keys = append(keys, append(tokenPrefix(d.Name, f.Name, t), id...))
			}
		case Numeric:
			n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || math.IsNaN(n) {
				continue
			}
			keys = append(keys, append(numericPrefix(d.Name, f.Name, n), id...))
		}
	}

	return keys
}
