package testutil

import "fmt"

// DefaultNamePrefix is used by NewSequentialNames when prefix is empty.
const DefaultNamePrefix = "auto-"

// SequentialNames allocates entity key names prefix000001, prefix000002, ...
//
// It implements store.NameGenerator. Names are zero-padded so they sort in
// allocation order up to 999999.
//
// Thread-safety: safe for concurrent use.
type SequentialNames struct {
	prefix string
	seq    *Sequence
}

// NewSequentialNames creates a generator for the given prefix.
func NewSequentialNames(prefix string) *SequentialNames {
	if prefix == "" {
		prefix = DefaultNamePrefix
	}
	return &SequentialNames{prefix: prefix, seq: NewSequence()}
}

// Generate returns the next name.
func (g *SequentialNames) Generate() string {
	return fmt.Sprintf("%s%06d", g.prefix, g.seq.Next())
}

// Reset restarts allocation at prefix000001.
func (g *SequentialNames) Reset() {
	g.seq.Reset()
}
