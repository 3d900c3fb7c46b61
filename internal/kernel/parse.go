package kernel

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ParseError reports a failure to parse a kernel string, naming the
// zero-based index of the failing kernel within the ';'-separated list.
type ParseError struct {
	Index   int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("kernel %d: %s", e.Index, e.Message)
}

// Builder constructs a named kernel from a decoded Geometry argument. It is
// supplied by the kernel builder (build.go) so Parse can stay ignorant of
// the ~30 named kernel families; parse.go only recognizes the *grammar*.
type Builder func(name string, geom Geometry, logger *slog.Logger) (*Kernel, error)

// Parse parses a kernel string (§6 grammar: list = kernel *(";" kernel)) into
// a kernel list. On any parse failure the whole list fails: a partially
// built chain is discarded and a *ParseError is returned.
//
// build is used to resolve the "named" surface form; pass nil if only the
// sized-array and old-square forms need to be supported (e.g. in tests).
func Parse(s string, build Builder, logger *slog.Logger) (*Kernel, error) {
	segments := splitSemicolons(s)
	var head, tail *Kernel
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		k, err := parseOne(seg, build, logger)
		if err != nil {
			return nil, &ParseError{Index: i, Message: err.Error()}
		}
		if head == nil {
			head = k
			tail = k.Last()
		} else {
			tail.Next = k
			tail = k.Last()
		}
	}
	if head == nil {
		return nil, &ParseError{Index: 0, Message: "empty kernel list"}
	}
	return head, nil
}

// splitSemicolons splits on ';', collapsing repeats and leading/trailing
// separators per the grammar's "*(\";\")" padding.
func splitSemicolons(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if strings.TrimSpace(part) != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOne(seg string, build Builder, logger *slog.Logger) (*Kernel, error) {
	trimmed := strings.TrimSpace(seg)
	if trimmed == "" {
		return nil, fmt.Errorf("empty kernel segment")
	}

	if isAlpha(rune(trimmed[0])) {
		return parseNamed(trimmed, build, logger)
	}
	if idx := strings.IndexByte(trimmed, ':'); idx >= 0 && looksSized(trimmed[:idx]) {
		return parseSized(trimmed)
	}
	return parseOldSquare(trimmed)
}

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func looksSized(header string) bool {
	return strings.ContainsRune(header, 'x') || strings.ContainsRune(header, 'X')
}

// parseNamed handles "name" or "name:geometry".
func parseNamed(seg string, build Builder, logger *slog.Logger) (*Kernel, error) {
	if build == nil {
		return nil, fmt.Errorf("no builder available to resolve named kernel %q", seg)
	}
	name := seg
	geomStr := ""
	if idx := strings.IndexByte(seg, ':'); idx >= 0 {
		name = seg[:idx]
		geomStr = seg[idx+1:]
	}
	geom, err := ParseGeometry(geomStr)
	if err != nil {
		return nil, fmt.Errorf("geometry for %q: %w", name, err)
	}
	k, err := build(name, geom, logger)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, fmt.Errorf("unknown kernel name %q", name)
	}
	return k, nil
}

// parseSized handles "WxH[+X+Y][^|@]:v,v,...".
func parseSized(seg string) (*Kernel, error) {
	idx := strings.IndexByte(seg, ':')
	header := seg[:idx]
	body := seg[idx+1:]

	expand := byte(0)
	if n := len(header); n > 0 && (header[n-1] == '^' || header[n-1] == '@') {
		expand = header[n-1]
		header = header[:n-1]
	}

	width, height, x, y, hasOrigin, err := parseSizeHeader(header)
	if err != nil {
		return nil, err
	}

	values, err := parseValueList(body)
	if err != nil {
		return nil, err
	}
	if len(values) != width*height {
		return nil, fmt.Errorf("expected %d values for a %dx%d kernel, got %d",
			width*height, width, height, len(values))
	}
	if !hasOrigin {
		x, y = width/2, height/2
	}
	if x < 0 || x >= width || y < 0 || y >= height {
		return nil, fmt.Errorf("origin (%d,%d) outside %dx%d grid", x, y, width, height)
	}
	if !hasNonNaN(values) {
		return nil, fmt.Errorf("kernel has no non-NaN value")
	}

	k := New(width, height, x, y, values)
	k.Type = TypeUser
	switch expand {
	case '^':
		Expand(k, 90, nil)
	case '@':
		Expand(k, 45, nil)
	}
	return k, nil
}

func parseSizeHeader(header string) (width, height, x, y int, hasOrigin bool, err error) {
	xi := strings.IndexAny(header, "xX")
	if xi < 0 {
		return 0, 0, 0, 0, false, fmt.Errorf("missing WxH in header %q", header)
	}
	w, err := strconv.Atoi(header[:xi])
	if err != nil || w <= 0 {
		return 0, 0, 0, 0, false, fmt.Errorf("invalid width in header %q", header)
	}
	rest := header[xi+1:]

	hEnd := len(rest)
	for i, r := range rest {
		if r == '+' || r == '-' {
			hEnd = i
			break
		}
	}
	h, err := strconv.Atoi(rest[:hEnd])
	if err != nil || h <= 0 {
		return 0, 0, 0, 0, false, fmt.Errorf("invalid height in header %q", header)
	}
	rest = rest[hEnd:]
	if rest == "" {
		return w, h, 0, 0, false, nil
	}

	// rest looks like "+X+Y" or "+X-Y" etc.
	parts := splitSigned(rest)
	if len(parts) != 2 {
		return 0, 0, 0, 0, false, fmt.Errorf("invalid origin offset %q", rest)
	}
	ox, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, 0, false, fmt.Errorf("invalid origin x %q", parts[0])
	}
	oy, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, 0, false, fmt.Errorf("invalid origin y %q", parts[1])
	}
	return w, h, ox, oy, true, nil
}

// splitSigned splits "+X+Y" / "+X-Y" / "-X-Y" into ["+X","+Y"] keeping signs.
func splitSigned(s string) []string {
	var parts []string
	start := -1
	for i, r := range s {
		if r == '+' || r == '-' {
			if start >= 0 {
				parts = append(parts, s[start:i])
			}
			start = i
		}
	}
	if start >= 0 {
		parts = append(parts, s[start:])
	}
	return parts
}

// parseOldSquare handles a bare numlist inferred to be a square of side
// ceil(sqrt(count)), origin at centre. Only accepted if count is a perfect
// square.
func parseOldSquare(seg string) (*Kernel, error) {
	values, err := parseValueList(seg)
	if err != nil {
		return nil, err
	}
	side := int(math.Sqrt(float64(len(values))))
	if side*side != len(values) {
		return nil, fmt.Errorf("%d values is not a perfect square", len(values))
	}
	if !hasNonNaN(values) {
		return nil, fmt.Errorf("kernel has no non-NaN value")
	}
	k := New(side, side, side/2, side/2, values)
	k.Type = TypeUser
	return k, nil
}

// parseValueList parses a whitespace- or comma-separated list of numbers,
// where a bare "-" or the literal "nan" denotes a masked cell.
func parseValueList(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if f == "-" || strings.EqualFold(f, "nan") {
			values = append(values, math.NaN())
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q", f)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no values given")
	}
	return values, nil
}

func hasNonNaN(values []float64) bool {
	for _, v := range values {
		if !IsNaN(v) {
			return true
		}
	}
	return false
}
