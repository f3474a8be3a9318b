package module

import (
	"context"

	samplesdom "repertoire/internal/services/api/samples/domain"
	samplessvc "repertoire/internal/services/api/samples/service"
)

// Ports exposes the samples service to other modules
func (m *Module) Ports() any { return adaptSamplesPort{svc: m.svc} }

// adaptSamplesPort adapts the samples service to the domain port interface
type adaptSamplesPort struct{ svc samplessvc.Service }

// List implements the domain ServicePort interface
func (a adaptSamplesPort) List(ctx context.Context, in samplesdom.ListInput) (samplesdom.Page[samplesdom.Sample], error) {
	return a.svc.List(ctx, in)
}

// Sequences implements the domain ServicePort interface
func (a adaptSamplesPort) Sequences(ctx context.Context, id int64, in samplesdom.SequencesInput) (samplesdom.Page[samplesdom.Sequence], error) {
	return a.svc.Sequences(ctx, id, in)
}
