package analysis

import (
	"context"
	"strings"

	"github.com/phrazzld/tahfidz-api/internal/domain"
)

// Recitation is what the learner submitted: recorded audio, a transcript,
// or both.
type Recitation struct {
	// Audio is the raw audio payload, already decoded from base64.
	Audio    []byte
	MimeType string

	// Transcript is optional when Audio is present.
	Transcript string
}

// Empty reports whether the recitation carries nothing to analyze.
func (r Recitation) Empty() bool {
	return len(r.Audio) == 0 && strings.TrimSpace(r.Transcript) == ""
}

// Request pairs the canonical range with the learner's recitation.
type Request struct {
	Range      *domain.ContentRange
	Recitation Recitation
}

// Analyzer scores a recitation against canonical text.
//
// Implementations make a single attempt and never fabricate a result: any
// failure is returned as an error wrapping one of the package's sentinels.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*domain.Analysis, error)
}

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, req Request) (*domain.Analysis, error)

// Analyze implements Analyzer.
func (f AnalyzerFunc) Analyze(ctx context.Context, req Request) (*domain.Analysis, error) {
	return f(ctx, req)
}
