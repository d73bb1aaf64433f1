package extractor

// Policy selects how extraction treats an Inlined node whose recorded
// original CID disagrees with the CID recomputed from its (possibly
// edited) subtree.
//
// The divergence is legitimate: editing inlined content is the documented
// way to produce a new graph with new CIDs, but a caller may instead want
// to be told (Verify) or stopped (Strict) when content no longer matches
// the link it claims to have come from.
type Policy uint8

const (
	// Verify reports every mismatch but completes the extraction, using
	// the computed CID throughout. This is the default.
	Verify Policy = iota

	// Strict aborts on the first mismatch.
	Strict

	// Recompute ignores recorded original CIDs entirely; mismatches are
	// never an error.
	Recompute
)

func (p Policy) String() string {
	switch p {
	case Verify:
		return "verify"
	case Strict:
		return "strict"
	case Recompute:
		return "recompute"
	default:
		return "unknown"
	}
}
