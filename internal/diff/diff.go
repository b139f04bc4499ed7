// Package diff compares class listings from two classpaths.
// It uses github.com/pmezard/go-difflib/difflib to produce classic unified
// patches (---/+++ headers, @@ hunks, lines prefixed with ' ', '-', '+').
package diff

import (
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Options controls patch generation behavior.
type Options struct {
	// Context controls the number of context lines in unified hunks.
	// If 0, default to 3.
	Context int
	// MaxLines guards against huge listings (len(a)+len(b)). When exceeded,
	// a placeholder patch is returned. 0 means "no limit".
	MaxLines int
}

// Unified produces a unified patch turning listing a into b, one name per
// line. Equal listings yield "".
func Unified(aName, bName string, a, b []string, opt Options) (body string, oversize bool) {
	if opt.MaxLines > 0 && len(a)+len(b) > opt.MaxLines {
		return omitted(aName, bName), true
	}
	ctx := opt.Context
	if ctx <= 0 {
		ctx = 3
	}
	u := difflib.UnifiedDiff{
		A:        lines(a),
		B:        lines(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(aName, bName), false
	}
	return s, false
}

// Changes lists the names only in a (removed) and only in b (added), in
// listing order.
type Changes struct {
	Removed []string
	Added   []string
}

// Empty reports whether the listings were identical.
func (c Changes) Empty() bool { return len(c.Removed) == 0 && len(c.Added) == 0 }

// Compare computes the changes between a and b.
func Compare(a, b []string) Changes {
	var c Changes
	m := difflib.NewMatcher(a, b)
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'd':
			c.Removed = append(c.Removed, a[op.I1:op.I2]...)
		case 'i':
			c.Added = append(c.Added, b[op.J1:op.J2]...)
		case 'r':
			c.Removed = append(c.Removed, a[op.I1:op.I2]...)
			c.Added = append(c.Added, b[op.J1:op.J2]...)
		}
	}
	return c
}

func lines(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n + "\n"
	}
	return out
}

// omitted returns a compact placeholder when size limits are exceeded.
func omitted(aName, bName string) string {
	var b strings.Builder
	b.WriteString("--- " + aName + "\n")
	b.WriteString("+++ " + bName + "\n")
	b.WriteString("@@\n# diff omitted (oversize)\n")
	return b.String()
}
