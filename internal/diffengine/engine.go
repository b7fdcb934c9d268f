// Package diffengine computes line-oriented diffs between two versions
// of artifact content and reconstructs content from them.
package diffengine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/promptops-labs/promptops-go/internal/domain"
)

// ErrContentTooLarge reports content exceeding the configured line limit.
var ErrContentTooLarge = errors.New("content exceeds maximum line count")

// DefaultMaxLines bounds the number of lines per input.
const DefaultMaxLines = 100000

// Engine computes Myers longest-common-subsequence diffs over lines.
// The zero value is not usable; construct with New.
type Engine struct {
	maxLines int
}

func New(maxLines int) *Engine {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Engine{maxLines: maxLines}
}

// Diff returns the full aligned sequence of context/add/remove chunks
// transforming oldContent into newContent. Identical inputs yield zero
// chunks. The result is deterministic: when multiple minimal edit
// scripts exist, common lines are matched as early as possible and
// removals are emitted before additions at the same position, so
// contiguous changes collapse into at most one remove and one add chunk.
func (e *Engine) Diff(oldContent, newContent string) (domain.DiffResult, error) {
	if oldContent == newContent {
		return domain.DiffResult{}, nil
	}
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)
	if len(oldLines) > e.maxLines {
		return domain.DiffResult{}, fmt.Errorf("old content has %d lines (limit %d): %w", len(oldLines), e.maxLines, ErrContentTooLarge)
	}
	if len(newLines) > e.maxLines {
		return domain.DiffResult{}, fmt.Errorf("new content has %d lines (limit %d): %w", len(newLines), e.maxLines, ErrContentTooLarge)
	}

	ops := myers(oldLines, newLines)
	return domain.DiffResult{Chunks: assembleChunks(ops, oldLines, newLines)}, nil
}

// splitLines maps content to its line sequence. The empty string has no
// lines; any other content splits on "\n" so that joining with "\n"
// reproduces the content byte for byte.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

type opKind uint8

const (
	opEqual opKind = iota
	opDelete
	opInsert
)

// myers runs the greedy O(ND) forward search and backtracks the edit
// script. At equal cost the search extends the higher diagonal first,
// which matches common lines as early as possible.
func myers(a, b []string) []opKind {
	n, m := len(a), len(b)
	if n == 0 && m == 0 {
		return nil
	}
	max := n + m
	// v is indexed by diagonal k offset by max.
	v := make([]int, 2*max+2)
	trace := make([][]int, 0, max+1)

	var endD int
search:
	for d := 0; d <= max; d++ {
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[max+k-1] < v[max+k+1]) {
				x = v[max+k+1]
			} else {
				x = v[max+k-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[max+k] = x
			if x >= n && y >= m {
				endD = d
				break search
			}
		}
	}

	// Backtrack from (n, m) through the saved v arrays.
	ops := make([]opKind, 0, n+m)
	x, y := n, m
	for d := endD; d > 0; d-- {
		vPrev := trace[d]
		k := x - y
		var prevK int
		if k == -d || (k != d && vPrev[max+k-1] < vPrev[max+k+1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := vPrev[max+prevK]
		prevY := prevX - prevK
		for x > prevX && y > prevY {
			ops = append(ops, opEqual)
			x--
			y--
		}
		if x == prevX {
			ops = append(ops, opInsert)
			y--
		} else {
			ops = append(ops, opDelete)
			x--
		}
	}
	for x > 0 && y > 0 {
		ops = append(ops, opEqual)
		x--
		y--
	}
	for x > 0 {
		ops = append(ops, opDelete)
		x--
	}
	for y > 0 {
		ops = append(ops, opInsert)
		y--
	}

	// ops were collected back to front.
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}
	return ops
}

// assembleChunks folds the op sequence into chunk runs. A contiguous
// changed region becomes one remove chunk followed by one add chunk,
// regardless of how deletions and insertions interleave in the script.
func assembleChunks(ops []opKind, oldLines, newLines []string) []domain.DiffChunk {
	chunks := make([]domain.DiffChunk, 0)
	oldPos, newPos := 0, 0 // 0-based consumed counts

	i := 0
	for i < len(ops) {
		if ops[i] == opEqual {
			start := i
			for i < len(ops) && ops[i] == opEqual {
				i++
			}
			count := i - start
			chunks = append(chunks, domain.DiffChunk{
				Kind:     domain.ChunkContext,
				OldStart: oldPos + 1,
				OldLines: count,
				NewStart: newPos + 1,
				NewLines: count,
				Lines:    append([]string(nil), oldLines[oldPos:oldPos+count]...),
			})
			oldPos += count
			newPos += count
			continue
		}

		var removed, added []string
		removeStart, addStart := oldPos, newPos
		for i < len(ops) && ops[i] != opEqual {
			if ops[i] == opDelete {
				removed = append(removed, oldLines[oldPos])
				oldPos++
			} else {
				added = append(added, newLines[newPos])
				newPos++
			}
			i++
		}
		if len(removed) > 0 {
			chunks = append(chunks, domain.DiffChunk{
				Kind:     domain.ChunkRemove,
				OldStart: removeStart + 1,
				OldLines: len(removed),
				NewStart: addStart + 1,
				NewLines: 0,
				Lines:    removed,
			})
		}
		if len(added) > 0 {
			chunks = append(chunks, domain.DiffChunk{
				Kind:     domain.ChunkAdd,
				OldStart: oldPos + 1,
				OldLines: 0,
				NewStart: addStart + 1,
				NewLines: len(added),
				Lines:    added,
			})
		}
	}
	return chunks
}
