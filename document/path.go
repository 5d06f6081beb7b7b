package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one component of a parsed path: either a field key or an
// array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path is a parsed path expression addressing a location inside a
// Document. The payload root is written "$"; fields use dot syntax and
// array elements use bracket indexing:
//
//	$
//	$.analysis_result.toxicity_score
//	$.paths[0].summary
//
// The distinguished "$$" prefix addresses the read-only execution
// context object instead of the payload:
//
//	$$.execution.id
//
// Parse once, reuse freely: Path values are immutable.
type Path struct {
	raw     string
	context bool
	segs    []Segment
}

// ParsePath parses a path expression. The empty string is equivalent
// to "$" (the payload root).
func ParsePath(s string) (Path, error) {
	p := Path{raw: s}

	rest := s
	switch {
	case rest == "" || rest == "$":
		return p, nil
	case rest == "$$":
		p.context = true
		return p, nil
	case strings.HasPrefix(rest, "$$."):
		p.context = true
		rest = rest[3:]
	case strings.HasPrefix(rest, "$."):
		rest = rest[2:]
	default:
		return Path{}, fmt.Errorf("document: path %q must start with %q or %q", s, "$", "$$")
	}

	if rest == "" {
		return Path{}, fmt.Errorf("document: path %q has a trailing dot", s)
	}

	for _, part := range strings.Split(rest, ".") {
		if part == "" {
			return Path{}, fmt.Errorf("document: path %q has an empty segment", s)
		}
		segs, err := parsePart(part)
		if err != nil {
			return Path{}, fmt.Errorf("document: path %q: %w", s, err)
		}
		p.segs = append(p.segs, segs...)
	}

	return p, nil
}

// MustPath is like ParsePath but panics on error. Use for hardcoded paths.
func MustPath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err.Error())
	}
	return p
}

// parsePart splits a dot-separated part like "branches[2]" into its key
// segment plus any trailing index segments.
func parsePart(part string) ([]Segment, error) {
	var segs []Segment

	key := part
	if i := strings.IndexByte(part, '['); i >= 0 {
		key = part[:i]
		rest := part[i:]
		for rest != "" {
			if rest[0] != '[' {
				return nil, fmt.Errorf("unexpected %q in segment %q", rest, part)
			}
			close := strings.IndexByte(rest, ']')
			if close < 0 {
				return nil, fmt.Errorf("unterminated index in segment %q", part)
			}
			idx, err := strconv.Atoi(rest[1:close])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("invalid index %q in segment %q", rest[1:close], part)
			}
			segs = append(segs, Segment{Index: idx, IsIndex: true})
			rest = rest[close+1:]
		}
	}

	if key == "" && len(segs) == 0 {
		return nil, fmt.Errorf("empty segment %q", part)
	}
	if key != "" {
		segs = append([]Segment{{Key: key}}, segs...)
	}

	return segs, nil
}

// IsRoot reports whether the path addresses the payload root ("$" or "").
func (p Path) IsRoot() bool { return !p.context && len(p.segs) == 0 }

// IsContext reports whether the path addresses the execution context
// object ("$$." prefix).
func (p Path) IsContext() bool { return p.context }

// Segments returns the parsed segments. The returned slice must not be
// modified.
func (p Path) Segments() []Segment { return p.segs }

// String returns the original path expression.
func (p Path) String() string {
	if p.raw == "" {
		return "$"
	}
	return p.raw
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(data []byte) error {
	parsed, err := ParsePath(string(data))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
