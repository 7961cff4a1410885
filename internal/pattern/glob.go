package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	errEmptyPattern  = errors.New("empty pattern")
	errTrailingSlash = errors.New("trailing escape character")
	errOpenClass     = errors.New("unterminated character class")
	errOpenBrace     = errors.New("unterminated brace group")
	errNestedBrace   = errors.New("nested brace groups are not supported")
)

// compileGlob translates a glob source into a Pattern.
func compileGlob(source string, role Role) (*Pattern, error) {
	body := strings.TrimSpace(source)
	p := &Pattern{Source: source, Kind: KindGlob, Role: role}

	if role != RoleIgnore {
		switch {
		case strings.HasPrefix(body, "(?i)"):
			p.CaseInsensitive = true
			body = body[len("(?i)"):]
		case strings.HasPrefix(body, "(?-i)"):
			body = body[len("(?-i)"):]
		}
	}

	if strings.HasPrefix(body, "/") {
		p.Anchored = true
		body = body[1:]
	}
	if strings.HasSuffix(body, "/") && !strings.HasSuffix(body, `\/`) {
		p.DirectoryOnly = true
		body = strings.TrimRight(body, "/")
	}
	if body == "" {
		return nil, errEmptyPattern
	}

	expr, err := globToRegex(body)
	if err != nil {
		return nil, err
	}

	prefix := `(?:^|.*/)`
	if p.Anchored {
		prefix = `^`
	}
	flags := ""
	if p.CaseInsensitive {
		flags = "(?i)"
	}

	re, err := regexp.Compile(flags + prefix + expr + `$`)
	if err != nil {
		return nil, fmt.Errorf("translate glob: %w", err)
	}
	p.match = re.MatchString
	return p, nil
}

// globToRegex converts a glob body to a regex body.
//
// "**/" matches zero or more directories, "**" anything including slashes,
// "*" and "?" stay within one segment, "[...]" is a character class with "!"
// or "^" negation and "{a,b}" is an alternation.
func globToRegex(pat string) (string, error) {
	var b strings.Builder
	inBrace := false

	for i := 0; i < len(pat); i++ {
		c := pat[i]
		switch c {
		case '\\':
			if i+1 >= len(pat) {
				return "", errTrailingSlash
			}
			i++
			b.WriteString(regexp.QuoteMeta(pat[i : i+1]))
		case '*':
			if i+1 < len(pat) && pat[i+1] == '*' {
				atSegmentStart := i == 0 || pat[i-1] == '/'
				if atSegmentStart && i+2 < len(pat) && pat[i+2] == '/' {
					b.WriteString(`(?:.*/)?`)
					i += 2
					continue
				}
				b.WriteString(`.*`)
				i++
				continue
			}
			b.WriteString(`[^/]*`)
		case '?':
			b.WriteString(`[^/]`)
		case '[':
			end := classEnd(pat, i)
			if end < 0 {
				return "", errOpenClass
			}
			writeClass(&b, pat[i+1:end])
			i = end
		case '{':
			if inBrace {
				return "", errNestedBrace
			}
			if !strings.Contains(pat[i:], "}") {
				return "", errOpenBrace
			}
			inBrace = true
			b.WriteString(`(?:`)
		case '}':
			if !inBrace {
				b.WriteString(`\}`)
				continue
			}
			inBrace = false
			b.WriteString(`)`)
		case ',':
			if inBrace {
				b.WriteString(`|`)
				continue
			}
			b.WriteByte(',')
		default:
			b.WriteString(regexp.QuoteMeta(pat[i : i+1]))
		}
	}

	if inBrace {
		return "", errOpenBrace
	}
	return b.String(), nil
}

// classEnd returns the index of the "]" closing the class opened at start.
func classEnd(pat string, start int) int {
	i := start + 1
	if i < len(pat) && (pat[i] == '!' || pat[i] == '^') {
		i++
	}
	if i < len(pat) && pat[i] == ']' {
		i++
	}
	for ; i < len(pat); i++ {
		switch pat[i] {
		case '\\':
			i++
		case '[':
			// POSIX named class such as [:alpha:]
			if i+1 < len(pat) && pat[i+1] == ':' {
				if j := strings.Index(pat[i+2:], ":]"); j >= 0 {
					i += j + 3
				}
			}
		case ']':
			return i
		}
	}
	return -1
}

// writeClass emits a regex class that never matches the path separator.
func writeClass(b *strings.Builder, body string) {
	b.WriteByte('[')
	if body != "" && (body[0] == '!' || body[0] == '^') {
		b.WriteString(`^/`)
		body = body[1:]
	}
	for i := 0; i < len(body); i++ {
		if body[i] == '\\' && i+1 < len(body) {
			i++
			b.WriteString(regexp.QuoteMeta(body[i : i+1]))
			continue
		}
		if body[i] == '\\' {
			b.WriteString(`\\`)
			continue
		}
		b.WriteByte(body[i])
	}
	b.WriteByte(']')
}
