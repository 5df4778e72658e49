package value

// Block is a parsed polyglot block: a fragment of foreign-language source
// with the ordered list of host variables it binds. Produced by the parser;
// immutable after creation.
type Block struct {
	language string
	source   string
	bound    []string
}

// NewBlock builds a block. The bound-name slice is copied so later caller
// mutation cannot leak into the block.
func NewBlock(language, source string, bound []string) Block {
	return Block{
		language: language,
		source:   source,
		bound:    append([]string(nil), bound...),
	}
}

// Language returns the block's language tag (e.g. "python").
func (b Block) Language() string { return b.language }

// Source returns the foreign source text verbatim.
func (b Block) Source() string { return b.source }

// Bound returns the ordered bound-variable names. The slice is a copy.
func (b Block) Bound() []string { return append([]string(nil), b.bound...) }
