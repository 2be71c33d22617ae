// Package versioning parses, canonicalizes, and orders the version tokens
// that sources embed in data filenames. Every source declares a Scheme that
// matches its release numbering; version strings are opaque everywhere else.
package versioning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// CanonicalDateLayout is the storage form for date-based versions. Dates are
// normalized to it before being embedded in filenames so that lexicographic
// and chronological order coincide.
const CanonicalDateLayout = "20060102"

// ParseError reports a version token or filename that does not conform to the
// expected scheme or pattern.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse version from %q: %s", e.Input, e.Reason)
}

// Scheme canonicalizes raw version tokens and orders canonical ones.
type Scheme interface {
	// Canonicalize validates a raw version token and returns its canonical,
	// filename-safe form.
	Canonicalize(raw string) (string, error)

	// Compare orders two canonical tokens: -1 if a < b, 0 if equal, 1 if a > b.
	Compare(a, b string) (int, error)
}

// FromFilename extracts the version token embedded in a filename. The pattern
// must contain exactly one capture group around the version.
func FromFilename(filename string, pattern *regexp.Regexp) (string, error) {
	m := pattern.FindStringSubmatch(filename)
	if len(m) < 2 || m[1] == "" {
		return "", &ParseError{Input: filename, Reason: fmt.Sprintf("no match for pattern %s", pattern)}
	}
	return m[1], nil
}

// Numeric orders dotted integer tuples component-wise, e.g. "2.10" > "2.3".
// Tuples of differing length are compared without padding: a strict prefix
// orders before its extension. Sources with fixed-arity numbering should keep
// their filename patterns tight enough that mixed arities never meet.
type Numeric struct {
	// Delimiter between components; "." when empty.
	Delimiter string
}

func (n Numeric) delim() string {
	if n.Delimiter == "" {
		return "."
	}
	return n.Delimiter
}

func (n Numeric) components(raw string) ([]int, error) {
	parts := strings.Split(raw, n.delim())
	out := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, &ParseError{Input: raw, Reason: fmt.Sprintf("component %q is not an integer", p)}
		}
		out[i] = v
	}
	return out, nil
}

func (n Numeric) Canonicalize(raw string) (string, error) {
	if _, err := n.components(raw); err != nil {
		return "", err
	}
	return raw, nil
}

func (n Numeric) Compare(a, b string) (int, error) {
	av, err := n.components(a)
	if err != nil {
		return 0, err
	}
	bv, err := n.components(b)
	if err != nil {
		return 0, err
	}
	for i := 0; i < len(av) && i < len(bv); i++ {
		switch {
		case av[i] < bv[i]:
			return -1, nil
		case av[i] > bv[i]:
			return 1, nil
		}
	}
	switch {
	case len(av) < len(bv):
		return -1, nil
	case len(av) > len(bv):
		return 1, nil
	}
	return 0, nil
}

// Date canonicalizes date-form versions into CanonicalDateLayout.
type Date struct {
	// Layout is the time layout the source publishes, e.g. "02-Jan-2006".
	// When empty the canonical layout itself is expected.
	Layout string
}

func (d Date) layout() string {
	if d.Layout == "" {
		return CanonicalDateLayout
	}
	return d.Layout
}

func (d Date) Canonicalize(raw string) (string, error) {
	t, err := time.Parse(d.layout(), raw)
	if err != nil {
		return "", &ParseError{Input: raw, Reason: fmt.Sprintf("not a %s date", d.layout())}
	}
	return t.Format(CanonicalDateLayout), nil
}

func (d Date) Compare(a, b string) (int, error) {
	for _, v := range []string{a, b} {
		if _, err := time.Parse(CanonicalDateLayout, v); err != nil {
			return 0, &ParseError{Input: v, Reason: "not a canonical date"}
		}
	}
	return strings.Compare(a, b), nil
}

// SemVer orders versions under semantic versioning rules.
type SemVer struct{}

func (SemVer) Canonicalize(raw string) (string, error) {
	if _, err := semver.NewVersion(raw); err != nil {
		return "", &ParseError{Input: raw, Reason: err.Error()}
	}
	return raw, nil
}

func (SemVer) Compare(a, b string) (int, error) {
	av, err := semver.NewVersion(a)
	if err != nil {
		return 0, &ParseError{Input: a, Reason: err.Error()}
	}
	bv, err := semver.NewVersion(b)
	if err != nil {
		return 0, &ParseError{Input: b, Reason: err.Error()}
	}
	return av.Compare(bv), nil
}

// Custom adapts caller-provided canonicalize and compare functions into a
// Scheme, for sources whose numbering fits none of the stock variants.
type Custom struct {
	CanonicalizeFunc func(raw string) (string, error)
	CompareFunc      func(a, b string) (int, error)
}

func (c Custom) Canonicalize(raw string) (string, error) {
	if c.CanonicalizeFunc == nil {
		return raw, nil
	}
	return c.CanonicalizeFunc(raw)
}

func (c Custom) Compare(a, b string) (int, error) {
	if c.CompareFunc == nil {
		return strings.Compare(a, b), nil
	}
	return c.CompareFunc(a, b)
}
