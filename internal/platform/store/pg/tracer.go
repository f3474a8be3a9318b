package pg

import (
	"context"
	"strings"

	"repertoire/internal/platform/logger"

	"github.com/rs/zerolog"
)

// maxTracedArgs caps how many bind arguments a trace line carries. Clone
// membership inserts bind whole id arrays
const maxTracedArgs = 16

// QueryEvent is one finished statement
type QueryEvent struct {
	SQL       string
	Args      []any
	ElapsedUS int64
	Err       error
	Slow      bool
}

// QueryTracer receives every statement the store runs
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer logs statements through root at debug, independent of the
// process-wide level. Slow or failed statements log at warn
func Tracer(root logger.Logger) QueryTracer {
	return &zlTracer{log: root.Level(zerolog.DebugLevel).With().Str("component", "pg").Logger()}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := z.log.Debug()
	if ev.Slow || ev.Err != nil {
		evt = z.log.Warn()
	}
	evt = evt.Float64("elapsed_ms", float64(ev.ElapsedUS)/1000).
		Bool("slow", ev.Slow).
		Str("sql", compact(ev.SQL)).
		Int("nargs", len(ev.Args))
	if len(ev.Args) <= maxTracedArgs {
		evt = evt.Interface("args", ev.Args)
	}
	evt.Err(ev.Err).Msg("pg query")
}

// compact folds whitespace runs so multi-line SQL fits one log line
func compact(s string) string { return strings.Join(strings.Fields(s), " ") }
