// Package printer handles output formatting and display
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"

	"github.com/bethropolis/dir-digest/internal/filter"
	"github.com/bethropolis/dir-digest/internal/selection"
	"github.com/bethropolis/dir-digest/internal/walker"
)

// Printer handles output formatting and writing to the configured output destination
type Printer struct {
	output         io.Writer
	count          atomic.Int64
	useColors      bool
	jsonOutput     bool
	markdownOutput bool
	// collapsed hides the children of directories that are not expanded
	collapsed bool
	marks     func(n *walker.Node) string

	dirColor     *color.Color
	linkColor    *color.Color
	includeColor *color.Color
	excludeColor *color.Color
	dimColor     *color.Color
}

// New creates a new Printer with default settings
func New() *Printer {
	p := &Printer{
		output:       os.Stdout,
		dirColor:     color.New(color.FgBlue, color.Bold),
		linkColor:    color.New(color.FgCyan),
		includeColor: color.New(color.FgGreen, color.Bold),
		excludeColor: color.New(color.FgRed, color.Bold),
		dimColor:     color.New(color.Faint),
	}
	return p.WithColors(true)
}

// WithOutput sets the output destination
func (p *Printer) WithOutput(w io.Writer) *Printer {
	p.output = w
	return p
}

// WithColors enables or disables colored output
func (p *Printer) WithColors(enabled bool) *Printer {
	p.useColors = enabled
	for _, c := range []*color.Color{p.dirColor, p.linkColor, p.includeColor, p.excludeColor, p.dimColor} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// WithJSON enables JSON output mode
func (p *Printer) WithJSON(enabled bool) *Printer {
	p.jsonOutput = enabled
	if enabled {
		p.WithColors(false)
	}
	return p
}

// WithMarkdown enables Markdown output mode
func (p *Printer) WithMarkdown(enabled bool) *Printer {
	p.markdownOutput = enabled
	if enabled {
		p.WithColors(false)
	}
	return p
}

// WithCollapsed hides the children of collapsed directories in text and
// markdown output. JSON output always carries the whole tree.
func (p *Printer) WithCollapsed(enabled bool) *Printer {
	p.collapsed = enabled
	return p
}

// WithSelection prefixes every node with its selection state.
func (p *Printer) WithSelection(sel *selection.Coordinator) *Printer {
	if sel == nil {
		p.marks = nil
		return p
	}
	p.marks = func(n *walker.Node) string {
		switch sel.DirState(n.RelPath) {
		case selection.StateAll:
			return "[x] "
		case selection.StatePartial:
			return "[~] "
		}
		return "[ ] "
	}
	return p
}

// PrintTree renders a tree snapshot.
func (p *Printer) PrintTree(res *walker.Result) error {
	if res == nil || res.Root == nil {
		return fmt.Errorf("printer: no tree to print")
	}
	if p.jsonOutput {
		p.count.Add(int64(res.NodeCount))
		return p.writeJSON(res)
	}

	if p.markdownOutput {
		fmt.Fprintf(p.output, "## %s\n\n", res.Root.Path)
		p.markdownChildren(res.Root, 0)
		fmt.Fprintln(p.output)
	} else {
		fmt.Fprintln(p.output, p.dirColor.Sprint(res.Root.Path))
		p.textChildren(res.Root, "")
	}
	return nil
}

func (p *Printer) textChildren(dir *walker.Node, prefix string) {
	if p.hideChildren(dir) {
		return
	}
	for i, child := range dir.Children {
		last := i == len(dir.Children)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		fmt.Fprintf(p.output, "%s%s%s\n", prefix, branch, p.label(child))
		p.count.Add(1)
		if child.IsDir() {
			p.textChildren(child, prefix+next)
		}
	}
}

func (p *Printer) markdownChildren(dir *walker.Node, level int) {
	if p.hideChildren(dir) {
		return
	}
	indent := strings.Repeat("  ", level)
	for _, child := range dir.Children {
		fmt.Fprintf(p.output, "%s- %s\n", indent, p.label(child))
		p.count.Add(1)
		if child.IsDir() {
			p.markdownChildren(child, level+1)
		}
	}
}

func (p *Printer) hideChildren(dir *walker.Node) bool {
	return p.collapsed && dir.RelPath != "" && !dir.Expanded
}

// label formats one node for text or markdown output.
func (p *Printer) label(n *walker.Node) string {
	var b strings.Builder
	if p.marks != nil {
		b.WriteString(p.marks(n))
	}

	name := n.Name
	if p.markdownOutput {
		name = "`" + name + "`"
	}
	switch {
	case n.IsDir():
		b.WriteString(p.dirColor.Sprint(name + "/"))
	case n.Symlink:
		b.WriteString(p.linkColor.Sprint(name))
	default:
		b.WriteString(name)
	}

	if n.IsDir() && n.Placeholder {
		b.WriteString(p.dimColor.Sprint(" (not enumerated)"))
	} else if n.IsDir() && p.hideChildren(n) && len(n.Children) > 0 {
		b.WriteString(p.dimColor.Sprintf(" (%d entries)", len(n.Children)))
	}
	if n.Symlink {
		b.WriteString(p.dimColor.Sprint(" -> link"))
	}
	return b.String()
}

// PrintDecisions renders filter decisions with their stage traces.
func (p *Printer) PrintDecisions(decisions []filter.Decision) error {
	p.count.Add(int64(len(decisions)))
	if p.jsonOutput {
		return p.writeJSON(decisions)
	}

	for _, d := range decisions {
		verdict := p.includeColor.Sprint("INCLUDED")
		if !d.Included {
			verdict = p.excludeColor.Sprint("EXCLUDED")
		}
		path := d.Path
		if path == "" {
			path = "."
		}
		if d.IsDir {
			path += "/"
		}

		if p.markdownOutput {
			fmt.Fprintf(p.output, "### `%s`: %s (%s)\n\n", path, verdict, d.Reason)
			fmt.Fprintln(p.output, "| stage | outcome | pattern | detail |")
			fmt.Fprintln(p.output, "|---|---|---|---|")
			for _, st := range d.Stages {
				fmt.Fprintf(p.output, "| %s | %s | %s | %s |\n", st.Stage, st.Outcome, code(st.Pattern), st.Detail)
			}
			fmt.Fprintln(p.output)
			continue
		}

		fmt.Fprintf(p.output, "%s: %s (%s)\n", path, verdict, d.Reason)
		for _, st := range d.Stages {
			line := fmt.Sprintf("  %-12s %-8s", st.Stage, st.Outcome)
			if st.Pattern != "" {
				line += " " + st.Pattern
			}
			if st.Detail != "" {
				line += p.dimColor.Sprintf("  [%s]", st.Detail)
			}
			fmt.Fprintln(p.output, strings.TrimRight(line, " "))
		}
	}
	return nil
}

// PrintSelection renders a selection snapshot.
func (p *Printer) PrintSelection(snap selection.Snapshot) error {
	p.count.Add(int64(len(snap.Paths)))
	if p.jsonOutput {
		return p.writeJSON(snap)
	}
	for _, path := range snap.Paths {
		if p.markdownOutput {
			fmt.Fprintf(p.output, "- `%s`\n", path)
		} else {
			fmt.Fprintln(p.output, path)
		}
	}
	return nil
}

func (p *Printer) writeJSON(v interface{}) error {
	enc := json.NewEncoder(p.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("printer: failed to encode JSON: %w", err)
	}
	return nil
}

func code(s string) string {
	if s == "" {
		return ""
	}
	return "`" + strings.ReplaceAll(s, "|", `\|`) + "`"
}

// GetCount returns the number of entries printed
func (p *Printer) GetCount() int64 {
	return p.count.Load()
}
