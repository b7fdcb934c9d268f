package diffengine

import (
	"errors"
	"fmt"

	"github.com/promptops-labs/promptops-go/internal/domain"
)

// ErrApplyMismatch reports chunks that do not line up with the content
// they are applied to.
var ErrApplyMismatch = errors.New("diff does not apply to content")

// Apply reconstructs the new content by replaying chunks over
// oldContent. Context and remove chunks are verified against the old
// lines they claim to cover, so applying diff(A, B) to A reproduces B
// exactly or fails loudly.
func Apply(oldContent string, chunks []domain.DiffChunk) (string, error) {
	oldLines := splitLines(oldContent)
	if len(chunks) == 0 {
		return oldContent, nil
	}

	out := make([]string, 0, len(oldLines))
	oldPos := 0 // 0-based next unconsumed old line

	for _, chunk := range chunks {
		switch chunk.Kind {
		case domain.ChunkContext, domain.ChunkRemove:
			if chunk.OldStart != oldPos+1 {
				return "", fmt.Errorf("chunk starts at old line %d, expected %d: %w", chunk.OldStart, oldPos+1, ErrApplyMismatch)
			}
			if oldPos+len(chunk.Lines) > len(oldLines) {
				return "", fmt.Errorf("chunk overruns old content at line %d: %w", chunk.OldStart, ErrApplyMismatch)
			}
			for i, line := range chunk.Lines {
				if oldLines[oldPos+i] != line {
					return "", fmt.Errorf("old line %d differs from chunk: %w", chunk.OldStart+i, ErrApplyMismatch)
				}
			}
			if chunk.Kind == domain.ChunkContext {
				out = append(out, chunk.Lines...)
			}
			oldPos += len(chunk.Lines)
		case domain.ChunkAdd:
			out = append(out, chunk.Lines...)
		default:
			return "", fmt.Errorf("unknown chunk kind %q: %w", chunk.Kind, ErrApplyMismatch)
		}
	}

	if oldPos != len(oldLines) {
		return "", fmt.Errorf("chunks cover %d of %d old lines: %w", oldPos, len(oldLines), ErrApplyMismatch)
	}
	return joinLines(out), nil
}
