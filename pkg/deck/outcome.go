package deck

import stderrors "errors"

// Fallback labels printed on the code face.
const (
	NoCodeLabel          = "no code"
	CodeUnavailableLabel = "code unavailable"
)

// OutcomeKind classifies how a record's code face is filled.
type OutcomeKind int

const (
	// Image means a code image was generated.
	Image OutcomeKind = iota
	// NoCodeInput means the record has no link; nothing was generated.
	NoCodeInput
	// GenerationFailed means the generator returned an error or an image
	// that does not decode.
	GenerationFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case Image:
		return "image"
	case NoCodeInput:
		return "no-code-input"
	case GenerationFailed:
		return "generation-failed"
	}
	return "unknown"
}

// Outcome is the result of code generation for one record.
type Outcome struct {
	Kind OutcomeKind
	PNG  []byte
	Err  error
}

var errEmptyImage = stderrors.New("generator returned an empty image")
