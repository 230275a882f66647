package pdf

// DefaultMaxImages is the per-document image cap used when none is configured.
const DefaultMaxImages = 100

// ImageBudget counts the embedded images sent to the vision model during a
// single extraction. It is not safe for concurrent use and must not be
// shared between extractions.
type ImageBudget struct {
	cap  int
	used int
}

// NewImageBudget returns a budget allowing limit images. A negative limit is
// treated as zero.
func NewImageBudget(limit int) *ImageBudget {
	return &ImageBudget{cap: max(limit, 0)}
}

// Exhausted reports whether no further images may be processed.
func (b *ImageBudget) Exhausted() bool {
	return b.used >= b.cap
}

// Consume records one processed image.
func (b *ImageBudget) Consume() {
	b.used++
}

// Used returns the number of images consumed so far.
func (b *ImageBudget) Used() int {
	return b.used
}

// Cap returns the configured limit.
func (b *ImageBudget) Cap() int {
	return b.cap
}
