// Package like evaluates SQL LIKE patterns in process for cache drivers that
// have no query engine. Matching is case-insensitive for ASCII letters, the
// same as SQLite's default LIKE.
package like

import "strings"

// Escape is the escape character recognised in patterns.
const Escape = '\\'

// Contains returns a pattern matching any value that contains term literally.
func Contains(term string) string {
	return "%" + Quote(term) + "%"
}

// Quote escapes the LIKE metacharacters in term.
func Quote(term string) string {
	if !strings.ContainsAny(term, `%_\`) {
		return term
	}
	var b strings.Builder
	b.Grow(len(term) + 4)
	for _, r := range term {
		if r == '%' || r == '_' || r == Escape {
			b.WriteRune(Escape)
		}
		b.WriteRune(r)
	}
	return b.String()
}

type token struct {
	kind rune // 0 literal, '%' any run, '_' single rune
	lit  rune
}

func compile(pattern string) []token {
	var toks []token
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			toks = append(toks, token{lit: r})
			escaped = false
		case r == Escape:
			escaped = true
		case r == '%':
			if n := len(toks); n > 0 && toks[n-1].kind == '%' {
				continue
			}
			toks = append(toks, token{kind: '%'})
		case r == '_':
			toks = append(toks, token{kind: '_'})
		default:
			toks = append(toks, token{lit: r})
		}
	}
	if escaped {
		toks = append(toks, token{lit: Escape})
	}
	return toks
}

// Match reports whether value satisfies pattern.
func Match(pattern, value string) bool {
	return match(compile(pattern), []rune(value))
}

func match(toks []token, s []rune) bool {
	// Greedy star backtracking; one saved position is enough for '%'.
	ti, si := 0, 0
	starT, starS := -1, 0
	for si < len(s) {
		switch {
		case ti < len(toks) && toks[ti].kind == '%':
			starT, starS = ti, si
			ti++
		case ti < len(toks) && (toks[ti].kind == '_' || foldEq(toks[ti].lit, s[si])):
			ti++
			si++
		case starT >= 0:
			starS++
			si = starS
			ti = starT + 1
		default:
			return false
		}
	}
	for ti < len(toks) && toks[ti].kind == '%' {
		ti++
	}
	return ti == len(toks)
}

func foldEq(a, b rune) bool {
	if a == b {
		return true
	}
	return a < 128 && b < 128 && lower(a) == lower(b)
}

func lower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
