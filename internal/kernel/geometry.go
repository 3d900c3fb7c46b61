package kernel

import (
	"fmt"
	"strconv"
	"strings"
)

// GeometryFlag marks which fields of a Geometry were actually set by the
// user, and which literal modifiers (%, !, ^, @) were present.
type GeometryFlag int

const (
	FlagRho GeometryFlag = 1 << iota
	FlagSigma
	FlagXi
	FlagPsi
	FlagPercent // '%' modifier
	FlagAspect  // '!' modifier
	FlagExpand90
	FlagExpand45
)

// Geometry is the decoded argument struct §3 describes: the five fields the
// kernel builder reads off a parsed "name:geometry" token. Rho is typically
// a size/radius, Sigma a scale (e.g. Gaussian sigma), Xi/Psi secondary
// values (angle, second sigma, ...).
type Geometry struct {
	Rho, Sigma, Xi, Psi float64
	Flags               GeometryFlag
}

// Has reports whether flag is set.
func (g Geometry) Has(flag GeometryFlag) bool { return g.Flags&flag != 0 }

// ParseGeometry parses the project-wide "rho,sigma,xi,psi" geometry
// convention with optional trailing modifiers, e.g. "5", "5x3", "0,1.5",
// "3!", "10%". Fields are comma-separated; a comma-free "WxH" spelling
// used for size pairs is also accepted and read as rho=W, sigma=H,
// matching how the original CLI reuses one geometry parser for both
// size-pairs and scalar-argument kernels.
func ParseGeometry(s string) (Geometry, error) {
	var g Geometry
	s = strings.TrimSpace(s)
	if s == "" {
		return g, nil
	}

	for strings.HasSuffix(s, "%") || strings.HasSuffix(s, "!") ||
		strings.HasSuffix(s, "^") || strings.HasSuffix(s, "@") {
		switch s[len(s)-1] {
		case '%':
			g.Flags |= FlagPercent
		case '!':
			g.Flags |= FlagAspect
		case '^':
			g.Flags |= FlagExpand90
		case '@':
			g.Flags |= FlagExpand45
		}
		s = s[:len(s)-1]
	}
	if s == "" {
		return g, nil
	}

	sep := ","
	if strings.ContainsAny(s, "xX") && !strings.Contains(s, ",") {
		sep = "xX"
	}
	var fields []string
	if sep == "," {
		fields = strings.Split(s, ",")
	} else {
		fields = strings.FieldsFunc(s, func(r rune) bool { return r == 'x' || r == 'X' })
	}

	setters := []struct {
		flag GeometryFlag
		dst  *float64
	}{
		{FlagRho, &g.Rho}, {FlagSigma, &g.Sigma}, {FlagXi, &g.Xi}, {FlagPsi, &g.Psi},
	}
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || i >= len(setters) {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return g, fmt.Errorf("invalid geometry field %q: %w", f, err)
		}
		*setters[i].dst = v
		g.Flags |= setters[i].flag
	}
	return g, nil
}
