package crs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrWKT is wrapped by all well-known text parse errors.
var ErrWKT = errors.New("invalid well-known text")

// wktKinds maps root keywords of WKT1 and WKT2 to the kind they declare.
var wktKinds = map[string]Kind{
	"GEOGCS":         KindGeographic,
	"GEOGCRS":        KindGeographic,
	"GEOGRAPHICCRS":  KindGeographic,
	"GEODCRS":        KindGeographic,
	"GEODETICCRS":    KindGeographic,
	"PROJCS":         KindProjected,
	"PROJCRS":        KindProjected,
	"PROJECTEDCRS":   KindProjected,
	"GEOCCS":         KindGeocentric,
	"COMPD_CS":       KindCompound,
	"COMPOUNDCRS":    KindCompound,
	"LOCAL_CS":       KindEngineering,
	"ENGCRS":         KindEngineering,
	"ENGINEERINGCRS": KindEngineering,
}

type wktArg struct {
	node   *wktNode
	text   string
	quoted bool
}

type wktNode struct {
	keyword string
	args    []wktArg
}

// name returns the first quoted argument of n.
func (n *wktNode) name() string {
	for _, a := range n.args {
		if a.quoted {
			return a.text
		}
	}
	return ""
}

// child returns the first direct child node with one of the keywords.
func (n *wktNode) child(keywords ...string) *wktNode {
	for _, a := range n.args {
		if a.node == nil {
			continue
		}
		for _, k := range keywords {
			if a.node.keyword == k {
				return a.node
			}
		}
	}
	return nil
}

// firstNode returns the first direct child node.
func (n *wktNode) firstNode() *wktNode {
	for _, a := range n.args {
		if a.node != nil {
			return a.node
		}
	}
	return nil
}

// ParseWKT parses a coordinate reference system from WKT1 or WKT2 text.
//
// The returned reference carries the text's name, kind and, when the root
// element has an AUTHORITY or ID, a code such as "EPSG:4326". For BOUNDCRS
// the source system is returned.
func ParseWKT(text string) (SpatialReference, error) {
	p := &wktParser{src: text}
	root, err := p.parse()
	if err != nil {
		return SpatialReference{}, err
	}

	if root.keyword == "BOUNDCRS" {
		src := root.child("SOURCECRS")
		if src == nil || src.firstNode() == nil {
			return SpatialReference{}, fmt.Errorf("%w: BOUNDCRS without SOURCECRS", ErrWKT)
		}
		root = src.firstNode()
	}

	kind, ok := wktKinds[root.keyword]
	if !ok {
		return SpatialReference{}, fmt.Errorf("%w: %s is not a coordinate reference system", ErrWKT, root.keyword)
	}

	ref := SpatialReference{
		Name: root.name(),
		Kind: kind,
		WKT:  strings.TrimSpace(text),
	}
	if auth := root.child("AUTHORITY", "ID"); auth != nil && len(auth.args) >= 2 {
		authority := strings.ToUpper(auth.args[0].text)
		code := strings.TrimSpace(auth.args[1].text)
		if authority != "" && code != "" {
			ref.Code = authority + ":" + code
		}
	}
	if ref.Name == "" && ref.Code == "" {
		return SpatialReference{}, fmt.Errorf("%w: %s has neither name nor authority", ErrWKT, root.keyword)
	}
	return ref, nil
}

type wktParser struct {
	src string
	pos int
}

func (p *wktParser) parse() (*wktNode, error) {
	p.skipSpace()
	n, err := p.node()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("trailing input")
	}
	return n, nil
}

func (p *wktParser) node() (*wktNode, error) {
	kw := p.word()
	if kw == "" {
		return nil, p.errorf("expected keyword")
	}
	p.skipSpace()
	if p.pos >= len(p.src) || (p.src[p.pos] != '[' && p.src[p.pos] != '(') {
		return nil, p.errorf("expected '[' after %s", kw)
	}
	closer := byte(']')
	if p.src[p.pos] == '(' {
		closer = ')'
	}
	p.pos++

	n := &wktNode{keyword: strings.ToUpper(kw)}
	for {
		p.skipSpace()
		arg, err := p.arg()
		if err != nil {
			return nil, err
		}
		n.args = append(n.args, arg)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, p.errorf("unterminated %s", n.keyword)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case closer:
			p.pos++
			return n, nil
		default:
			return nil, p.errorf("unexpected %q in %s", p.src[p.pos], n.keyword)
		}
	}
}

func (p *wktParser) arg() (wktArg, error) {
	if p.pos >= len(p.src) {
		return wktArg{}, p.errorf("unexpected end of input")
	}
	c := p.src[p.pos]
	switch {
	case c == '"':
		s, err := p.quoted()
		return wktArg{text: s, quoted: true}, err
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		start := p.pos
		for p.pos < len(p.src) && strings.IndexByte("+-.0123456789eE", p.src[p.pos]) >= 0 {
			p.pos++
		}
		num := p.src[start:p.pos]
		if _, err := strconv.ParseFloat(num, 64); err != nil {
			return wktArg{}, p.errorf("bad number %q", num)
		}
		return wktArg{text: num}, nil
	default:
		start := p.pos
		w := p.word()
		if w == "" {
			return wktArg{}, p.errorf("unexpected %q", c)
		}
		p.skipSpace()
		if p.pos < len(p.src) && (p.src[p.pos] == '[' || p.src[p.pos] == '(') {
			p.pos = start
			n, err := p.node()
			return wktArg{node: n}, err
		}
		// Bare enumerations such as axis directions.
		return wktArg{text: w}, nil
	}
}

// quoted reads a double-quoted string; a doubled quote is an escaped quote.
func (p *wktParser) quoted() (string, error) {
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		if c != '"' {
			b.WriteByte(c)
			continue
		}
		if p.pos < len(p.src) && p.src[p.pos] == '"' {
			b.WriteByte('"')
			p.pos++
			continue
		}
		return b.String(), nil
	}
	return "", p.errorf("unterminated string")
}

func (p *wktParser) word() string {
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: offset %d: %s", ErrWKT, p.pos, fmt.Sprintf(format, args...))
}
