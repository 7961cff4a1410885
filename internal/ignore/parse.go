package ignore

import (
	"bufio"
	"bytes"
	"strings"
)

// parsedLine is one effective ignore-file line before compilation.
type parsedLine struct {
	lineNo  int
	raw     string
	pattern string
	negated bool
}

// parseLines splits ignore-file content into effective rules.
//
// Blank lines and "#" comments are skipped. "\#" and "\!" escape a leading
// special character, a leading "!" negates. Patterns with a slash anywhere
// but the end are anchored to the ignore file's directory.
func parseLines(content []byte) []parsedLine {
	var out []parsedLine
	s := bufio.NewScanner(bytes.NewReader(content))
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for s.Scan() {
		lineNo++
		raw := strings.TrimRight(s.Text(), "\r")
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}

		line := trimTrailingSpaces(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		negated := false
		switch {
		case strings.HasPrefix(line, `\#`), strings.HasPrefix(line, `\!`):
			line = line[1:]
		case strings.HasPrefix(line, "!"):
			negated = true
			line = line[1:]
		}
		if line == "" || line == "/" {
			continue
		}

		out = append(out, parsedLine{
			lineNo:  lineNo,
			raw:     raw,
			pattern: normalizeRulePattern(line),
			negated: negated,
		})
	}
	return out
}

// normalizeRulePattern anchors patterns that contain an inner slash.
func normalizeRulePattern(p string) string {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "**/") {
		return p
	}
	if strings.Contains(strings.TrimSuffix(p, "/"), "/") {
		return "/" + p
	}
	return p
}

// trimTrailingSpaces removes trailing spaces unless escaped by "\".
func trimTrailingSpaces(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		if len(s) >= 2 && s[len(s)-2] == '\\' {
			return s[:len(s)-2] + s[len(s)-1:]
		}
		s = s[:len(s)-1]
	}
	return s
}
