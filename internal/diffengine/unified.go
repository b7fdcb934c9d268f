package diffengine

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"

	"github.com/promptops-labs/promptops-go/internal/domain"
)

// DefaultContextLines is the context window used when rendering
// unified-diff text. Windowing is a rendering concern only; Engine.Diff
// always returns the full sequence.
const DefaultContextLines = 3

// Unified renders a DiffResult as unified-diff text with the given
// context window. This is the storage and display format for
// diffFromParent; it is lossy around unchanged regions by design.
func Unified(result domain.DiffResult, contextLines int) string {
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}
	if result.Empty() {
		return ""
	}

	type lineOp struct {
		kind    domain.ChunkKind
		text    string
		oldLine int // 1-based, 0 for add
		newLine int // 1-based, 0 for remove
	}

	flat := make([]lineOp, 0)
	for _, chunk := range result.Chunks {
		oldLine, newLine := chunk.OldStart, chunk.NewStart
		for _, text := range chunk.Lines {
			op := lineOp{kind: chunk.Kind, text: text}
			switch chunk.Kind {
			case domain.ChunkContext:
				op.oldLine, op.newLine = oldLine, newLine
				oldLine++
				newLine++
			case domain.ChunkRemove:
				op.oldLine = oldLine
				oldLine++
			case domain.ChunkAdd:
				op.newLine = newLine
				newLine++
			}
			flat = append(flat, op)
		}
	}

	var sb strings.Builder
	from := result.FromVersion
	if from == "" {
		from = "previous"
	}
	to := result.ToVersion
	if to == "" {
		to = "current"
	}
	fmt.Fprintf(&sb, "--- a/%s\n+++ b/%s\n", from, to)

	// Group changed regions into hunks, keeping up to contextLines of
	// context on each side and merging regions whose gap fits inside
	// two windows.
	i := 0
	for i < len(flat) {
		if flat[i].kind == domain.ChunkContext {
			i++
			continue
		}
		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i
		for j := i; j < len(flat); j++ {
			if flat[j].kind != domain.ChunkContext {
				end = j + 1
				continue
			}
			// Look ahead: does another change begin within 2*contextLines?
			gapEnd := j
			for gapEnd < len(flat) && flat[gapEnd].kind == domain.ChunkContext {
				gapEnd++
			}
			if gapEnd < len(flat) && gapEnd-j <= 2*contextLines {
				continue
			}
			break
		}
		tail := end + contextLines
		if tail > len(flat) {
			tail = len(flat)
		}
		for end < tail && flat[end].kind == domain.ChunkContext {
			end++
		}

		var oldStart, oldCount, newStart, newCount int
		for _, op := range flat[start:end] {
			if op.oldLine > 0 {
				if oldStart == 0 {
					oldStart = op.oldLine
				}
				oldCount++
			}
			if op.newLine > 0 {
				if newStart == 0 {
					newStart = op.newLine
				}
				newCount++
			}
		}
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
		for _, op := range flat[start:end] {
			switch op.kind {
			case domain.ChunkContext:
				sb.WriteString(" ")
			case domain.ChunkRemove:
				sb.WriteString("-")
			case domain.ChunkAdd:
				sb.WriteString("+")
			}
			sb.WriteString(op.text)
			sb.WriteString("\n")
		}
		i = end
	}
	return sb.String()
}

// ParseUnified reads stored unified-diff text back into chunk form.
// The chunks reflect the rendered windows, not the full aligned
// sequence; full diffs between versions are recomputed on demand.
func ParseUnified(text string) ([]domain.DiffChunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	fileDiff, err := godiff.ParseFileDiff([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse unified diff: %w", err)
	}

	chunks := make([]domain.DiffChunk, 0)
	for _, hunk := range fileDiff.Hunks {
		oldLine := int(hunk.OrigStartLine)
		newLine := int(hunk.NewStartLine)
		body := strings.Split(strings.TrimSuffix(string(hunk.Body), "\n"), "\n")

		i := 0
		for i < len(body) {
			prefix := byte(' ')
			if body[i] != "" {
				prefix = body[i][0]
			}
			start := i
			for i < len(body) {
				p := byte(' ')
				if body[i] != "" {
					p = body[i][0]
				}
				if p != prefix {
					break
				}
				i++
			}
			lines := make([]string, 0, i-start)
			for _, raw := range body[start:i] {
				if raw == "" {
					lines = append(lines, "")
					continue
				}
				lines = append(lines, raw[1:])
			}
			switch prefix {
			case '-':
				chunks = append(chunks, domain.DiffChunk{
					Kind:     domain.ChunkRemove,
					OldStart: oldLine,
					OldLines: len(lines),
					NewStart: newLine,
					Lines:    lines,
				})
				oldLine += len(lines)
			case '+':
				chunks = append(chunks, domain.DiffChunk{
					Kind:     domain.ChunkAdd,
					OldStart: oldLine,
					NewStart: newLine,
					NewLines: len(lines),
					Lines:    lines,
				})
				newLine += len(lines)
			default:
				chunks = append(chunks, domain.DiffChunk{
					Kind:     domain.ChunkContext,
					OldStart: oldLine,
					OldLines: len(lines),
					NewStart: newLine,
					NewLines: len(lines),
					Lines:    lines,
				})
				oldLine += len(lines)
				newLine += len(lines)
			}
		}
	}
	return chunks, nil
}
