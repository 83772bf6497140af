package index

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseError represents an error that occurred during parsing.
type ParseError struct {
	Message string
	Pos     int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at char %d", e.Message, e.Pos+1)
}

// Parse a query string.
//
// Supported syntax:
//
//	*                   every document
//	word                TEXT word in any TEXT field
//	@field:word         TEXT word
//	@field:(w1 w2)      TEXT words, all required
//	@field:{a|b}        TAG values
//	@field:[min max]    NUMERIC range; '(' before a bound makes it exclusive, -inf and +inf are accepted
//	a b                 intersection
//	a | b               union, binds looser than intersection
//	( ... )             grouping
func Parse(q string) (Expr, error) {
	p := parser{s: q}

	e, err := p.parseUnion("")
	if err != nil {
		return nil, err
	}

	p.skipSpaces()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.peek())
	}
	if e == nil {
		return nil, p.errorf("empty query")
	}
	return e, nil
}

// MustParse is like Parse but panics on error.
func MustParse(q string) Expr {
	e, err := Parse(q)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	s   string
	pos int
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Message: fmt.Sprintf(format, args...), Pos: p.pos}
}

func (p *parser) eof() bool {
	return p.pos >= len(p.s)
}

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(p.s[p.pos:])
	return r
}

func (p *parser) next() rune {
	r, size := utf8.DecodeRuneInString(p.s[p.pos:])
	p.pos += size
	return r
}

func (p *parser) skipSpaces() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.next()
	}
}

func (p *parser) expect(r rune) error {
	p.skipSpaces()
	if p.peek() != r {
		if p.eof() {
			return p.errorf("expected %q, got end of query", r)
		}
		return p.errorf("expected %q, got %q", r, p.peek())
	}
	p.next()
	return nil
}

func isSpecial(r rune) bool {
	return strings.ContainsRune("@:{}[]()|*", r)
}

func (p *parser) parseWord() string {
	start := p.pos
	for !p.eof() {
		r := p.peek()
		if unicode.IsSpace(r) || isSpecial(r) {
			break
		}
		p.next()
	}
	return p.s[start:p.pos]
}

// parseUnion parses intersections separated by '|'.
// Bare words are scoped to field if not empty.
func (p *parser) parseUnion(field string) (Expr, error) {
	var u Union

	for {
		e, err := p.parseIntersect(field)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, p.errorf("expected expression")
		}
		u = append(u, e)

		p.skipSpaces()
		if p.peek() != '|' {
			break
		}
		p.next()
	}

	if len(u) == 1 {
		return u[0], nil
	}
	return u, nil
}

// parseIntersect parses atoms until '|', ')' or the end of the query.
// It returns nil if there is no atom.
func (p *parser) parseIntersect(field string) (Expr, error) {
	var in Intersect
	var words []string

	flush := func() {
		if len(words) > 0 {
			in = append(in, Term{Field: field, Words: strings.Join(words, " ")})
			words = nil
		}
	}

	for {
		p.skipSpaces()
		if p.eof() {
			break
		}

		r := p.peek()
		if r == '|' || r == ')' {
			break
		}

		switch r {
		case '(':
			p.next()
			e, err := p.parseUnion(field)
			if err != nil {
				return nil, err
			}
			if err := p.expect(')'); err != nil {
				return nil, err
			}
			flush()
			in = append(in, e)
		case '*':
			p.next()
			flush()
			in = append(in, All{})
		case '@':
			p.next()
			e, err := p.parseFieldExpr()
			if err != nil {
				return nil, err
			}
			flush()
			in = append(in, e)
		default:
			if isSpecial(r) {
				return nil, p.errorf("unexpected %q", r)
			}
			// consecutive words make a single term
			words = append(words, p.parseWord())
		}
	}
	flush()

	switch len(in) {
	case 0:
		return nil, nil
	case 1:
		return in[0], nil
	}
	return in, nil
}

func (p *parser) parseFieldExpr() (Expr, error) {
	field := p.parseWord()
	if field == "" {
		return nil, p.errorf("expected field name after '@'")
	}
	if err := p.expect(':'); err != nil {
		return nil, err
	}

	p.skipSpaces()
	switch p.peek() {
	case '{':
		p.next()
		return p.parseTags(field)
	case '[':
		p.next()
		return p.parseRange(field)
	case '(':
		p.next()
		e, err := p.parseUnion(field)
		if err != nil {
			return nil, err
		}
		return e, p.expect(')')
	}

	w := p.parseWord()
	if w == "" {
		return nil, p.errorf("expected value for field %q", field)
	}
	return Term{Field: field, Words: w}, nil
}

func (p *parser) parseTags(field string) (Expr, error) {
	var values []string

	start := p.pos
	for {
		if p.eof() {
			return nil, p.errorf("unterminated tag list")
		}
		r := p.next()
		if r == '|' || r == '}' {
			v := strings.TrimSpace(p.s[start : p.pos-1])
			if v == "" {
				return nil, p.errorf("empty tag")
			}
			values = append(values, v)
			start = p.pos
		}
		if r == '}' {
			break
		}
	}

	return Tags{Field: field, Values: values}, nil
}

func (p *parser) parseBound() (float64, bool, error) {
	p.skipSpaces()
	var exclusive bool
	if p.peek() == '(' {
		p.next()
		exclusive = true
	}

	start := p.pos
	for !p.eof() {
		r := p.peek()
		if unicode.IsSpace(r) || r == ',' || r == ']' {
			break
		}
		p.next()
	}

	s := p.s[start:p.pos]
	switch strings.ToLower(s) {
	case "-inf":
		return math.Inf(-1), exclusive, nil
	case "inf", "+inf":
		return math.Inf(1), exclusive, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.pos = start
		return 0, false, p.errorf("invalid numeric bound %q", s)
	}
	return f, exclusive, nil
}

func (p *parser) parseRange(field string) (Expr, error) {
	r := Range{Field: field}

	var err error
	r.Min, r.ExclusiveMin, err = p.parseBound()
	if err != nil {
		return nil, err
	}

	p.skipSpaces()
	if p.peek() == ',' {
		p.next()
	}

	r.Max, r.ExclusiveMax, err = p.parseBound()
	if err != nil {
		return nil, err
	}

	return r, p.expect(']')
}
