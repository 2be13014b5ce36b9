package replay

import "fmt"

// Stage names the pipeline step that failed.
type Stage string

const (
	StageIO         Stage = "io"
	StageFormat     Stage = "format"
	StageDecompress Stage = "decompress"
	StageDecode     Stage = "decode"
)

// Error is a failure attributed to a pipeline stage and, when known, a segment.
// Segment is -1 for container-level failures.
type Error struct {
	Stage   Stage
	Segment int
	Err     error
}

func (e *Error) Error() string {
	if e.Segment >= 0 {
		return fmt.Sprintf("%s error in segment %d: %v", e.Stage, e.Segment, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func ioError(err error) *Error {
	return &Error{Stage: StageIO, Segment: -1, Err: err}
}

func formatError(segment int, format string, args ...any) *Error {
	return &Error{Stage: StageFormat, Segment: segment, Err: fmt.Errorf(format, args...)}
}
