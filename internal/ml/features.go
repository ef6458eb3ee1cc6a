package ml

// FeatureDim is the length of the feature vector the extractor produces,
// matching a YAMNet embedding.
const FeatureDim = 1024

// Extractor converts a raw audio file into a fixed-length feature vector.
// Implementations must be deterministic for identical input bytes.
type Extractor interface {
	Extract(path string) ([]float64, error)
}

// ZeroExtractor is a placeholder pending real signal processing (spectral
// embedding). It ignores the file contents and returns an all-zero vector of
// the expected shape.
type ZeroExtractor struct{}

// NewZeroExtractor returns the stub extractor.
func NewZeroExtractor() *ZeroExtractor {
	return &ZeroExtractor{}
}

// Extract returns a zero vector of length FeatureDim.
func (e *ZeroExtractor) Extract(path string) ([]float64, error) {
	return make([]float64, FeatureDim), nil
}
