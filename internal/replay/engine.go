package replay

import (
	"errors"

	"replayvault/parser/internal/codec"
	"replayvault/parser/internal/logging"
	"replayvault/parser/internal/summary"
	"replayvault/parser/internal/tree"
)

// SegmentStatus describes what happened to one declared segment.
type SegmentStatus string

const (
	SegmentOK               SegmentStatus = "ok"
	SegmentDropped          SegmentStatus = "dropped"
	SegmentDecompressFailed SegmentStatus = "decompress-failed"
	SegmentDecodeFailed     SegmentStatus = "decode-failed"
)

// SegmentReport records the outcome of decoding one segment.
type SegmentReport struct {
	Index       int
	Codec       string
	RawSize     int
	DecodedSize int
	Status      SegmentStatus
	Err         error
	Tree        *tree.Value
}

// Result is the fully decoded replay.
type Result struct {
	Path     string
	Header   Header
	Start    tree.Value
	End      *tree.Value
	Segments []SegmentReport
	Trailing int64
}

// Complete reports whether an end-of-match record was decoded.
func (r *Result) Complete() bool {
	return r != nil && r.End != nil
}

// Summary reduces the decoded trees to a MatchSummary.
func (r *Result) Summary() summary.MatchSummary {
	return summary.Extract(r.Path, r.Start, r.End)
}

// Outcome is the result of one Parse call: exactly one of Summary or Failure is set.
type Outcome struct {
	Summary *summary.MatchSummary
	Failure *Error
}

// OK reports whether the outcome carries a summary.
func (o Outcome) OK() bool { return o.Failure == nil && o.Summary != nil }

// Parse reads, decodes and summarises the replay at path.
func Parse(path string) Outcome {
	result, err := Decode(path)
	if err != nil {
		var replayErr *Error
		if !errors.As(err, &replayErr) {
			replayErr = &Error{Stage: StageIO, Segment: -1, Err: err}
		}
		return Outcome{Failure: replayErr}
	}
	s := result.Summary()
	return Outcome{Summary: &s}
}

// Decode runs the container, decompression and decode stages.
//
// Failures on segment 0 are returned as format errors. Failures on later
// segments are recorded in the segment reports and otherwise ignored.
func Decode(path string) (*Result, error) {
	container, err := ReadContainer(path)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Path:     path,
		Header:   container.Header,
		Segments: make([]SegmentReport, 0, container.Declared()),
		Trailing: container.Trailing,
	}

	for _, segment := range container.Segments {
		report := decodeSegment(segment)
		if segment.Index == 0 && report.Status != SegmentOK {
			//1.- The start record is mandatory; its failure is a malformed container.
			return nil, &Error{Stage: StageFormat, Segment: 0, Err: report.Err}
		}
		if report.Status != SegmentOK {
			logging.L().Debug("trailing replay segment skipped",
				logging.String("path", path),
				logging.Int("segment", segment.Index),
				logging.String("status", string(report.Status)),
				logging.Error(report.Err),
			)
		}
		result.Segments = append(result.Segments, report)
	}
	for i := len(container.Segments); i < container.Declared(); i++ {
		result.Segments = append(result.Segments, SegmentReport{Index: i, Status: SegmentDropped})
	}

	result.Start = *result.Segments[0].Tree
	//2.- The end record is the last trailing segment that decoded; earlier failures degrade to partial data.
	for i := len(result.Segments) - 1; i > 0; i-- {
		if result.Segments[i].Status == SegmentOK {
			result.End = result.Segments[i].Tree
			break
		}
	}
	return result, nil
}

func decodeSegment(segment Segment) SegmentReport {
	report := SegmentReport{Index: segment.Index, RawSize: len(segment.Raw)}
	payload, codecName, err := codec.Decompress(segment.Raw)
	report.Codec = codecName
	if err != nil {
		report.Status = SegmentDecompressFailed
		report.Err = err
		return report
	}
	report.DecodedSize = len(payload)
	value, err := tree.Decode(payload)
	if err != nil {
		report.Status = SegmentDecodeFailed
		report.Err = err
		return report
	}
	report.Status = SegmentOK
	report.Tree = &value
	return report
}
