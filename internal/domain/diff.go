package domain

// DiffChunk is one run of lines in an aligned comparison of two
// contents. Add and remove chunks never contain context lines.
type DiffChunk struct {
	Kind ChunkKind
	// OldStart and NewStart are 1-based line numbers. OldLines and
	// NewLines count lines actually present in the chunk on each side:
	// an add chunk has OldLines == 0, a remove chunk NewLines == 0.
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []string
}

// DiffResult is the full aligned sequence of context/add/remove runs
// between two versions, in ascending new-content order. It is a value
// object and is never persisted as-is; stored diffs use the unified
// text rendering.
type DiffResult struct {
	FromVersion string
	ToVersion   string
	Chunks      []DiffChunk
}

// Empty reports whether the two contents were identical.
func (r DiffResult) Empty() bool {
	return len(r.Chunks) == 0
}
