package collab

// ReorderPolicy decides how slide reordering is produced locally and
// reconciled remotely. The shipped policy broadcasts the full resulting order
// and lets the last writer win: a concurrent move by two users silently
// discards one of their intents. Keeping the policy behind an interface lets a
// sequence-number or transform-based policy replace it without touching the
// dispatcher.
type ReorderPolicy interface {
	// Move reorders the local array for a local move and returns the full
	// resulting order to broadcast. Out-of-range indices return nil.
	Move(slides []Slide, from, to int) []Slide
	// Apply reconciles a remote whole-array broadcast against local state.
	Apply(local, remote []Slide) []Slide
}

type lastWriterWins struct{}

// LastWriterWins returns the whole-array-replace reorder policy.
func LastWriterWins() ReorderPolicy { return lastWriterWins{} }

func (lastWriterWins) Move(slides []Slide, from, to int) []Slide {
	if from < 0 || from >= len(slides) || to < 0 || to >= len(slides) {
		return nil
	}
	out := make([]Slide, 0, len(slides))
	out = append(out, slides[:from]...)
	out = append(out, slides[from+1:]...)
	out = append(out[:to], append([]Slide{slides[from]}, out[to:]...)...)
	return out
}

func (lastWriterWins) Apply(_, remote []Slide) []Slide {
	return remote
}
