package xmlio

// Default maximum size of a single protocol document (4 MiB)
const DefaultMaxDocument int = 4_194_304

// Hard limit on document size (64 MiB) - prevents unbounded buffering on a
// misbehaving stream
const MaxDocumentHardLimit int = 67_108_864

// Limits bounds how many bytes of the stream a single document may occupy.
type Limits struct {
	MaxDocument int
}

// DefaultLimits returns the default document limits.
func DefaultLimits() Limits {
	return Limits{MaxDocument: DefaultMaxDocument}
}

// capped returns the effective limit, clamped to the hard limit.
func (l Limits) capped() int {
	if l.MaxDocument <= 0 || l.MaxDocument > MaxDocumentHardLimit {
		return MaxDocumentHardLimit
	}
	return l.MaxDocument
}
