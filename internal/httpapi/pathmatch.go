package httpapi

import "strings"

// MatchPattern reports whether a request path matches a glob-style route
// pattern: `*` matches within one segment, a bare `**` segment matches any
// number of segments (including none). Matching is evaluated against the
// logical path only; callers strip the query string.
func MatchPattern(pattern, path string) bool {
	if pattern == "" {
		return false
	}
	return matchSegments(splitPath(pattern), splitPath(path))
}

// MatchAny reports whether any pattern in the list matches the path.
func MatchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if MatchPattern(p, path) {
			return true
		}
	}
	return false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	if pattern[0] == "**" {
		// Zero segments, or consume one and retry.
		if matchSegments(pattern[1:], path) {
			return true
		}
		return len(path) > 0 && matchSegments(pattern, path[1:])
	}
	if len(path) == 0 {
		return false
	}
	if !matchSegment(pattern[0], path[0]) {
		return false
	}
	return matchSegments(pattern[1:], path[1:])
}

// matchSegment matches one pattern segment against one path segment, where
// `*` (and a `**` embedded inside a segment) matches any run of characters.
func matchSegment(pattern, seg string) bool {
	var (
		pi, si         int
		starPi, starSi = -1, 0
	)
	for si < len(seg) {
		switch {
		case pi < len(pattern) && pattern[pi] == '*':
			for pi < len(pattern) && pattern[pi] == '*' {
				pi++
			}
			starPi, starSi = pi, si
		case pi < len(pattern) && pattern[pi] == seg[si]:
			pi++
			si++
		case starPi >= 0:
			starSi++
			pi, si = starPi, starSi
		default:
			return false
		}
	}
	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
