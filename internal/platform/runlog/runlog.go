// Package runlog writes the modification log every pipeline stage leaves behind
package runlog

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	perr "repertoire/internal/platform/errors"
	"repertoire/internal/platform/logger"
	"repertoire/internal/platform/store"
)

// Actions recorded by the pipeline
const (
	ActionIdentify         = "identify"
	ActionCollapseSamples  = "collapse_samples"
	ActionCollapseSubjects = "collapse_subjects"
	ActionCluster          = "cluster"
	ActionRegen            = "regen"
	ActionImport           = "import_clones"
	ActionTrees            = "render_trees"
)

// NewRunID returns a fresh run id and a context carrying it for both the
// store and the logger
func NewRunID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	ctx = logger.WithRun(store.WithRunID(ctx, id), id)
	return ctx, id
}

// Record upserts one entry. Under a run id the entry is keyed by run and
// action, so a stage that records twice keeps its latest info; without one
// every call gets a new id
func Record(ctx context.Context, q store.RowQuerier, action string, info any) (uuid.UUID, error) {
	body, err := json.Marshal(info)
	if err != nil {
		return uuid.Nil, perr.Wrapf(err, perr.ErrorCodeJSON, "runlog: encode %s", action)
	}
	if info == nil {
		body = []byte("{}")
	}
	id := uuid.New()
	if rid, ok := store.RunID(ctx); ok {
		if parsed, err := uuid.Parse(rid); err == nil {
			id = uuid.NewSHA1(parsed, []byte(action))
		}
	}
	_, err = q.Exec(ctx, `
		INSERT INTO run_log (id, action, info)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE SET info = EXCLUDED.info, created_at = now()
	`, id, action, string(body))
	if err != nil {
		return uuid.Nil, perr.Wrapf(err, perr.ErrorCodeDB, "runlog: insert %s", action)
	}
	return id, nil
}

// Entry is one stored log line
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	Action    string          `json:"action"`
	Info      json.RawMessage `json:"info" swaggertype:"object"`
	CreatedAt string          `json:"created_at"`
}

// Recent lists the newest entries, optionally of one action
func Recent(ctx context.Context, q store.RowQuerier, action string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	out, err := store.Many(ctx, q, func(row store.Row) (Entry, error) {
		var (
			e    Entry
			info string
		)
		err := row.Scan(&e.ID, &e.Action, &info, &e.CreatedAt)
		e.Info = json.RawMessage(info)
		return e, err
	}, `
		SELECT id, action, info::text, created_at::text
		FROM run_log
		WHERE ($1 = '' OR action = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, action, limit)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "runlog: recent")
	}
	return out, nil
}
