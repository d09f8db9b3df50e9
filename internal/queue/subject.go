package queue

import "strings"

// SubjectToken turns a free-form name such as a country into one subject
// token. Only A-Z, a-z, 0-9, dash and underscore survive.
func SubjectToken(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "_"
	}
	result := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			result = append(result, c)
		} else {
			result = append(result, '_')
		}
	}
	return string(result)
}

// MatchSubject reports whether subject matches a pattern with "*" and ">"
// wildcards
func MatchSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}

// rootSubject returns the pattern's literal prefix before the first wildcard
func rootSubject(pattern string) string {
	tokens := strings.Split(pattern, ".")
	for i, t := range tokens {
		if t == "*" || t == ">" {
			return strings.Join(tokens[:i], ".")
		}
	}
	return pattern
}
