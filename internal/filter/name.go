package filter

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var nameCache sync.Map

// compileName turns a shell pattern into a case-insensitive regexp:
//
//	*       any run of characters
//	?       one character
//	[seq]   one character in seq
//	[!seq]  one character not in seq
func compileName(pattern string) (*regexp.Regexp, error) {
	if cached, ok := nameCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(translateName(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid name pattern %q: %w", pattern, err)
	}
	nameCache.Store(pattern, re)
	return re, nil
}

func translateName(pattern string) string {
	var b strings.Builder
	b.WriteString("(?is)^")

	for i := 0; i < len(pattern); {
		c := pattern[i]
		i++

		switch c {
		case '*':
			for i < len(pattern) && pattern[i] == '*' {
				i++
			}
			b.WriteString(".*")
		case '?':
			b.WriteByte('.')
		case '[':
			end := classEnd(pattern, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			writeClass(&b, pattern[i:end])
			i = end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteByte('$')
	return b.String()
}

// classEnd finds the closing bracket of a class starting at i. A "]"
// right after the opening bracket (or after "!") is literal.
func classEnd(pattern string, i int) int {
	j := i
	if j < len(pattern) && pattern[j] == '!' {
		j++
	}
	if j < len(pattern) && pattern[j] == ']' {
		j++
	}
	for j < len(pattern) && pattern[j] != ']' {
		j++
	}
	if j >= len(pattern) {
		return -1
	}
	return j
}

func writeClass(b *strings.Builder, class string) {
	switch class {
	case "":
		// Never matches.
		b.WriteString(`\b\B`)
		return
	case "!":
		b.WriteByte('.')
		return
	}

	b.WriteByte('[')
	if class[0] == '!' {
		b.WriteByte('^')
		class = class[1:]
	}
	if strings.HasPrefix(class, "^") {
		b.WriteByte('\\')
	}
	for k := 0; k < len(class); k++ {
		if class[k] == '\\' || class[k] == ']' || class[k] == '[' {
			b.WriteByte('\\')
		}
		b.WriteByte(class[k])
	}
	b.WriteByte(']')
}
