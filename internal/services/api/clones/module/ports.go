package module

import (
	"context"
	"io"

	clonesdom "repertoire/internal/services/api/clones/domain"
	clonessvc "repertoire/internal/services/api/clones/service"
	treesdom "repertoire/internal/services/trees/domain"
)

// Ports exposes the clones read service to other modules
func (m *Module) Ports() any { return adaptClonesPort{svc: m.svc} }

// adaptClonesPort adapts the clones service to the domain port interface
type adaptClonesPort struct{ svc clonessvc.Service }

func (a adaptClonesPort) List(ctx context.Context, in clonesdom.ListInput) (clonesdom.Page, error) {
	return a.svc.List(ctx, in)
}

func (a adaptClonesPort) Get(ctx context.Context, id int64) (clonesdom.CloneDetail, error) {
	return a.svc.Get(ctx, id)
}

func (a adaptClonesPort) Tree(ctx context.Context, id int64, in clonesdom.TreeInput) (*treesdom.Result, error) {
	return a.svc.Tree(ctx, id, in)
}

func (a adaptClonesPort) Export(ctx context.Context, w io.Writer, id int64) (int, error) {
	return a.svc.Export(ctx, w, id)
}

var _ clonesdom.ServicePort = adaptClonesPort{}
