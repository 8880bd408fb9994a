// Package fqn builds and splits fully qualified catalog names of the form
// service.dashboard. Parts containing the separator are double-quoted.
package fqn

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const sep = '.'

// Build joins parts into an FQN. Each part is NFC-normalized and trimmed;
// parts containing a dot are quoted.
func Build(parts ...string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(sep)
		}
		p = norm.NFC.String(strings.TrimSpace(p))
		if strings.ContainsRune(p, sep) {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(p, `"`, `""`))
			b.WriteByte('"')
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}

// Split is the inverse of Build.
func Split(s string) []string {
	var parts []string
	var cur strings.Builder
	quoted := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && quoted && i+1 < len(s) && s[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			quoted = !quoted
		case c == sep && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String())
}
