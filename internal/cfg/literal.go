package cfg

import (
	"fmt"
	"strconv"
	"strings"
)

// The external trainer evaluates override values as Python-style literals:
// tuples in parentheses, True/False booleans, quoted strings, and a fallback
// where anything unparsable is the string itself. ParseLiteral and
// RenderValue implement both directions of that convention so overrides
// round-trip between plan files, the in-memory document, and trainer argv.

// ParseLiteral interprets a single override value. A value that parses as
// nothing else is returned as the raw string, matching the trainer's
// fallback behavior.
func ParseLiteral(lit string) any {
	p := &literalParser{src: strings.TrimSpace(lit)}
	v, err := p.parseValue()
	if err != nil {
		return lit
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return lit
	}
	return v
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *literalParser) parseValue() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("unexpected end of literal")
	}
	switch c := p.src[p.pos]; {
	case c == '(' || c == '[':
		return p.parseList(c)
	case c == '\'' || c == '"':
		return p.parseString(c)
	default:
		return p.parseAtom()
	}
}

func (p *literalParser) parseList(open byte) (any, error) {
	close := byte(')')
	if open == '[' {
		close = ']'
	}
	p.pos++ // consume the opener
	var out []any
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("unterminated list")
		}
		if p.src[p.pos] == close {
			p.pos++
			if out == nil {
				out = []any{}
			}
			return out, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.pos < len(p.src) && p.src[p.pos] == close {
			p.pos++
			return out, nil
		}
		return nil, fmt.Errorf("expected ',' or '%c' in list", close)
	}
}

func (p *literalParser) parseString(quote byte) (any, error) {
	p.pos++ // consume the opening quote
	start := p.pos
	for p.pos < len(p.src) {
		if p.src[p.pos] == quote {
			s := p.src[start:p.pos]
			p.pos++
			return s, nil
		}
		p.pos++
	}
	return nil, fmt.Errorf("unterminated string")
}

func (p *literalParser) parseAtom() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ',' || c == ')' || c == ']' || c == ' ' || c == '\t' {
			break
		}
		p.pos++
	}
	atom := p.src[start:p.pos]
	if atom == "" {
		return nil, fmt.Errorf("empty literal")
	}
	switch atom {
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	if i, err := strconv.Atoi(atom); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(atom, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("bare word %q", atom)
}

// RenderValue renders a configuration value as a trainer command-line
// literal. Lists render as tuples, with the single-element trailing comma
// the trainer's literal evaluator requires.
func RenderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "()"
	case bool:
		if val {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return val
	case []any:
		elems := make([]string, len(val))
		for i, e := range val {
			elems[i] = renderElem(e)
		}
		if len(elems) == 1 {
			return "(" + elems[0] + ",)"
		}
		return "(" + strings.Join(elems, ", ") + ")"
	case []string:
		anyVals := make([]any, len(val))
		for i, s := range val {
			anyVals[i] = s
		}
		return RenderValue(anyVals)
	case []int:
		anyVals := make([]any, len(val))
		for i, s := range val {
			anyVals[i] = s
		}
		return RenderValue(anyVals)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// renderElem is RenderValue for values nested inside a tuple, where strings
// must carry quotes to survive literal evaluation.
func renderElem(v any) string {
	if s, ok := v.(string); ok {
		return "'" + s + "'"
	}
	return RenderValue(v)
}
