package analyzer

import (
	"context"
	"fmt"

	"github.com/livp123/logsift/internal/utils/logger"
	pkgerrors "github.com/livp123/logsift/pkg/errors"
)

// cancelCheckLines is how often the fold loop polls for cancellation.
const cancelCheckLines = 4096

// Aggregator 单遍折叠行流,并在流结束后执行畸形行比例门控
// Aggregator folds a line stream into per-URL duration samples in one
// forward pass, then applies the malformed-line gate. One Aggregator
// serves one run.
type Aggregator struct {
	parser    *LineParser
	filter    *LineFilter
	threshold float64
}

// NewAggregator wires a parser and an optional filter against the
// malformed-line ceiling, given in percent.
func NewAggregator(parser *LineParser, filter *LineFilter, threshold float64) *Aggregator {
	return &Aggregator{parser: parser, filter: filter, threshold: threshold}
}

// Aggregate consumes lines to exhaustion. Every line increments the
// total; malformed ones increment the malformed tally; well-formed ones
// passing the filter contribute their duration sample.
//
// The returned state is always non-nil so callers can report tallies,
// but when an error is returned its per-URL samples must not be used:
// a gated run produces no report. Errors are ErrEmptyInput for a
// zero-line stream, ErrParseGate when malformed/total*100 reaches the
// threshold, or the stream's own read error.
func (a *Aggregator) Aggregate(ctx context.Context, lines LineSource) (*AggregateState, error) {
	log := logger.Get(ctx)
	state := NewAggregateState()

	for lines.Scan() {
		state.TotalLines++
		if state.TotalLines%cancelCheckLines == 0 {
			if err := ctx.Err(); err != nil {
				return state, err
			}
		}

		parsed, ok := a.parser.ParseLine(lines.Text())
		if !ok {
			state.MalformedLines++
			continue
		}
		if !a.filter.Keep(parsed.URL, parsed.Duration) {
			continue
		}
		state.Add(parsed.URL, parsed.Duration)
	}
	if err := lines.Err(); err != nil {
		return state, fmt.Errorf("reading log: %w", err)
	}

	if state.TotalLines == 0 {
		return state, pkgerrors.ErrEmptyInput
	}

	ratio := float64(state.MalformedLines) / float64(state.TotalLines) * 100
	if ratio >= a.threshold {
		log.Errorf("❌ Parse gate tripped: %.2f%% of %d lines malformed (ceiling %.2f%%)",
			ratio, state.TotalLines, a.threshold)
		return state, pkgerrors.NewGateError(state.MalformedLines, state.TotalLines, a.threshold)
	}

	log.Infof("📊 Aggregated %d lines, %d malformed, %d distinct URLs",
		state.TotalLines, state.MalformedLines, state.Distinct())
	return state, nil
}
