package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// regexOnlyMeta are characters that only make sense in a regex body. A
// delimited pattern without flags and without any of these is an anchored
// directory glob such as "/src/".
const regexOnlyMeta = `^$+()|\`

// splitDelimited splits "/body/flags" into its parts.
func splitDelimited(source string) (body, flags string, ok bool) {
	if len(source) < 3 || source[0] != '/' {
		return "", "", false
	}
	end := strings.LastIndexByte(source, '/')
	if end <= 0 {
		return "", "", false
	}
	flags = source[end+1:]
	for _, r := range flags {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return "", "", false
		}
	}
	body = source[1:end]
	if body == "" {
		return "", "", false
	}
	return body, flags, true
}

// isRegexSource reports whether source uses the delimited regex syntax.
func isRegexSource(source string) bool {
	body, flags, ok := splitDelimited(strings.TrimSpace(source))
	if !ok {
		return false
	}
	return flags != "" || strings.ContainsAny(body, regexOnlyMeta) || strings.Contains(body, ".*")
}

func compileRegex(source string, role Role) (*Pattern, error) {
	body, flags, _ := splitDelimited(strings.TrimSpace(source))
	p := &Pattern{Source: source, Kind: KindRegex, Role: role}

	// An unescaped trailing slash inside the delimiters restricts to directories.
	if strings.HasSuffix(body, "/") && !strings.HasSuffix(body, `\/`) {
		p.DirectoryOnly = true
		body = strings.TrimSuffix(body, "/")
		if body == "" {
			return nil, errEmptyPattern
		}
	}
	p.Anchored = strings.HasPrefix(body, "^")

	var goFlags strings.Builder
	for _, f := range flags {
		switch f {
		case 'i':
			p.CaseInsensitive = true
			goFlags.WriteRune('i')
		case 'm', 's':
			goFlags.WriteRune(f)
		case 'g', 'u', 'y', 'd':
			// stateful or unicode flags have no meaning for a single match
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", f)
		}
	}

	expr := body
	if goFlags.Len() > 0 {
		expr = "(?" + goFlags.String() + ")" + body
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	p.match = re.MatchString
	return p, nil
}
