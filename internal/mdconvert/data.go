package mdconvert

// Block is one top-level unit of a Markdown document as seen by the
// translator. Verbatim blocks (code) are carried over untranslated.
type Block struct {
	Text     string
	Verbatim bool
}

// Lines splits a block into the single lines a translation backend accepts.
func (b Block) Lines() []string {
	return splitLines(b.Text)
}
