package externalapi

// BlockStatus represents the validation state of the block.
type BlockStatus byte

// Clone returns a clone of BlockStatus.
func (bs BlockStatus) Clone() BlockStatus {
	return bs
}

const (
	// StatusInvalid indicates that the block is invalid. Terminal: an
	// invalid block is never revalidated.
	StatusInvalid BlockStatus = iota

	// StatusValidated indicates that the block passed semantic and
	// contextual validation and sits in the non-finalized overlay of
	// some candidate chain.
	StatusValidated

	// StatusFinalized indicates that the block's deltas were merged into
	// durable storage. Terminal.
	StatusFinalized
)

var blockStatusStrings = map[BlockStatus]string{
	StatusInvalid:   "Invalid",
	StatusValidated: "Validated",
	StatusFinalized: "Finalized",
}

func (bs BlockStatus) String() string {
	return blockStatusStrings[bs]
}
