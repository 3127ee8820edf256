package tui

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/charmbracelet/lipgloss"
	"github.com/sprite-ai/easygit/internal/diff"
)

// renderedLine is a single line of diff output ready for display.
type renderedLine struct {
	OldNum  int // 0 means not applicable (add-only)
	NewNum  int // 0 means not applicable (delete-only)
	Op      gitdiff.LineOp
	Content string
	IsHunk  bool
	IsSep   bool // blank line between hunks

	Tokens []diff.Token
}

// renderFile produces renderedLines for a file's diff fragments.
func renderFile(f *diff.File, hl *diff.Highlighter) []renderedLine {
	var contentLines []string
	for _, frag := range f.Fragments {
		for _, line := range frag.Lines {
			contentLines = append(contentLines, cleanLine(line.Line))
		}
	}
	highlighted := hl.Lines(f.NewName, contentLines)
	hlIdx := 0

	var lines []renderedLine
	for i, frag := range f.Fragments {
		lines = append(lines, renderedLine{IsHunk: true, Content: formatHunkHeader(frag)})

		oldLine := int(frag.OldPosition)
		newLine := int(frag.NewPosition)
		for _, line := range frag.Lines {
			rl := renderedLine{Op: line.Op, Content: cleanLine(line.Line)}
			if hlIdx < len(highlighted) {
				rl.Tokens = highlighted[hlIdx].Tokens
				hlIdx++
			}

			switch line.Op {
			case gitdiff.OpContext:
				rl.OldNum = oldLine
				rl.NewNum = newLine
				oldLine++
				newLine++
			case gitdiff.OpDelete:
				rl.OldNum = oldLine
				oldLine++
			case gitdiff.OpAdd:
				rl.NewNum = newLine
				newLine++
			}
			lines = append(lines, rl)
		}

		if i < len(f.Fragments)-1 {
			lines = append(lines, renderedLine{IsSep: true})
		}
	}
	return lines
}

func cleanLine(s string) string {
	return strings.ReplaceAll(strings.TrimRight(s, "\n\r"), "\t", "    ")
}

func formatHunkHeader(frag *gitdiff.TextFragment) string {
	old := fmt.Sprintf("-%d", frag.OldPosition)
	if frag.OldLines != 1 {
		old += fmt.Sprintf(",%d", frag.OldLines)
	}
	new := fmt.Sprintf("+%d", frag.NewPosition)
	if frag.NewLines != 1 {
		new += fmt.Sprintf(",%d", frag.NewLines)
	}

	header := fmt.Sprintf("@@ %s %s @@", old, new)
	if frag.Comment != "" {
		header += " " + frag.Comment
	}
	return header
}

func lineNumber(n int) string {
	if n <= 0 {
		return "    "
	}
	return fmt.Sprintf("%4d", n)
}

// highlighted renders context content with syntax colors.
func highlighted(rl renderedLine, prefix string) string {
	if len(rl.Tokens) == 0 {
		return prefix + rl.Content
	}
	var b strings.Builder
	b.WriteString(prefix)
	for _, tok := range rl.Tokens {
		if tok.Color != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(tok.Color)).Render(tok.Text))
		} else {
			b.WriteString(tok.Text)
		}
	}
	return b.String()
}

// styleLine renders a line for the unified view.
func (s styles) styleLine(rl renderedLine, width int) string {
	if rl.IsHunk {
		return s.hunkHeader.Render(truncate(rl.Content, width))
	}
	if rl.IsSep {
		return ""
	}

	nums := s.lineNumber.Render(lineNumber(rl.OldNum)) + " " + s.lineNumber.Render(lineNumber(rl.NewNum))
	maxContent := width - 10

	var content string
	switch rl.Op {
	case gitdiff.OpAdd:
		content = s.addedLine.Render(truncate("+"+rl.Content, maxContent))
	case gitdiff.OpDelete:
		content = s.deletedLine.Render(truncate("-"+rl.Content, maxContent))
	default:
		if lipgloss.Width(" "+rl.Content) > maxContent {
			content = s.contextLine.Render(truncate(" "+rl.Content, maxContent))
		} else {
			content = highlighted(rl, " ")
		}
	}
	return nums + " " + content
}

// styleLineSplit renders a line for the side-by-side view.
func (s styles) styleLineSplit(rl renderedLine, halfWidth int) (left, right string) {
	blank := strings.Repeat(" ", halfWidth)
	if rl.IsHunk {
		return s.hunkHeader.Render(truncate(rl.Content, halfWidth)), ""
	}
	if rl.IsSep {
		return blank, ""
	}

	maxContent := halfWidth - 6
	pad := func(str string) string {
		if w := lipgloss.Width(str); w < halfWidth {
			return str + strings.Repeat(" ", halfWidth-w)
		}
		return str
	}

	switch rl.Op {
	case gitdiff.OpDelete:
		left = s.lineNumber.Render(lineNumber(rl.OldNum)) + " " + s.deletedLine.Render(truncate("-"+rl.Content, maxContent))
		return pad(left), blank
	case gitdiff.OpAdd:
		right = s.lineNumber.Render(lineNumber(rl.NewNum)) + " " + s.addedLine.Render(truncate("+"+rl.Content, maxContent))
		return blank, right
	default:
		content := truncate(" "+rl.Content, maxContent)
		left = s.lineNumber.Render(lineNumber(rl.OldNum)) + " " + s.contextLine.Render(content)
		right = s.lineNumber.Render(lineNumber(rl.NewNum)) + " " + s.contextLine.Render(content)
		return pad(left), right
	}
}

// truncate shortens s to at most max display cells, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= max {
		return s
	}
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := lipgloss.Width(string(r))
		if w+rw > max-1 {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	b.WriteString("…")
	return b.String()
}
