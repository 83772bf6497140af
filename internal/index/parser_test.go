package index_test

import (
	"math"
	"testing"

	"github.com/chaisql/hashkv/internal/index"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		q    string
		want index.Expr
	}{
		{"*", index.All{}},
		{"hello", index.Term{Words: "hello"}},
		{"hello world", index.Term{Words: "hello world"}},
		{"@gender:female", index.Term{Field: "gender", Words: "female"}},
		{"@first_name:(john paul)", index.Term{Field: "first_name", Words: "john paul"}},
		{"@country:{China}", index.Tags{Field: "country", Values: []string{"China"}}},
		{"@country:{China | Russia}", index.Tags{Field: "country", Values: []string{"China", "Russia"}}},
		{"@country:{United States}", index.Tags{Field: "country", Values: []string{"United States"}}},
		{"@latitude:[40 46]", index.Range{Field: "latitude", Min: 40, Max: 46}},
		{"@latitude:[40, 46.5]", index.Range{Field: "latitude", Min: 40, Max: 46.5}},
		{"@latitude:[(40 (46]", index.Range{Field: "latitude", Min: 40, Max: 46, ExclusiveMin: true, ExclusiveMax: true}},
		{"@latitude:[-inf +inf]", index.Range{Field: "latitude", Min: math.Inf(-1), Max: math.Inf(1)}},
		{"@latitude:[-10 inf]", index.Range{Field: "latitude", Min: -10, Max: math.Inf(1)}},
		{"@a:x | @b:y", index.Union{
			index.Term{Field: "a", Words: "x"},
			index.Term{Field: "b", Words: "y"},
		}},
		{"@a:x @b:y | @c:z", index.Union{
			index.Intersect{index.Term{Field: "a", Words: "x"}, index.Term{Field: "b", Words: "y"}},
			index.Term{Field: "c", Words: "z"},
		}},
		{"@gender:female ((@country:{China}) | (@country:{Russia})) @latitude:[40 46]", index.Intersect{
			index.Term{Field: "gender", Words: "female"},
			index.Union{
				index.Tags{Field: "country", Values: []string{"China"}},
				index.Tags{Field: "country", Values: []string{"Russia"}},
			},
			index.Range{Field: "latitude", Min: 40, Max: 46},
		}},
		{"@gender:(female|male)", index.Union{
			index.Term{Field: "gender", Words: "female"},
			index.Term{Field: "gender", Words: "male"},
		}},
	}

	for _, test := range tests {
		t.Run(test.q, func(t *testing.T) {
			e, err := index.Parse(test.q)
			require.NoError(t, err)
			require.Equal(t, test.want, e)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"@",
		"@gender",
		"@gender:",
		"@country:{China",
		"@country:{}",
		"@latitude:[40]",
		"@latitude:[a b]",
		"@latitude:[40 46",
		"(hello",
		"hello)",
		"a |",
		"| a",
		"{a}",
	}

	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			_, err := index.Parse(q)
			require.Error(t, err)
		})
	}
}

func TestExprString(t *testing.T) {
	tests := []string{
		"*",
		"@gender:female",
		"@first_name:(john paul)",
		"@country:{China|Russia}",
		"@latitude:[40 46]",
		"@latitude:[(40 +inf]",
		"@gender:female (@country:{China} | @country:{Russia}) @latitude:[40 46]",
	}

	for _, q := range tests {
		t.Run(q, func(t *testing.T) {
			e := index.MustParse(q)
			require.Equal(t, q, e.String())

			again, err := index.Parse(e.String())
			require.NoError(t, err)
			require.Equal(t, e, again)
		})
	}
}
