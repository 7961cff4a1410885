package ignore

import (
	"bytes"
	"fmt"
	"path"

	gitignore "github.com/denormal/go-gitignore"
)

// lint runs the content through go-gitignore's parser and reports its syntax
// diagnostics. Findings are advisory; evaluation uses the engine's own rules.
func lint(file string, content []byte) []string {
	var findings []string
	gitignore.New(bytes.NewReader(content), path.Dir(file), func(e gitignore.Error) bool {
		pos := e.Position()
		cause := e.Underlying()
		if cause == nil {
			cause = e
		}
		findings = append(findings, fmt.Sprintf("ignore file %s:%d:%d: %v", file, pos.Line, pos.Column, cause))
		return true
	})
	return findings
}
