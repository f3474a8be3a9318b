package http

import (
	stdhttp "net/http"
	"strconv"

	perr "repertoire/internal/platform/errors"

	"github.com/go-chi/chi/v5"
)

// PathInt64 reads a positive integer route parameter
func PathInt64(r *stdhttp.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, perr.Newf(perr.ErrorCodeInvalidArgument, "%s must be a positive integer, got %q", name, raw)
	}
	return n, nil
}
