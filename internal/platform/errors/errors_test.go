package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeInvalidArgument, http.StatusUnprocessableEntity},
		{ErrorCodeDuplicateKey, http.StatusConflict},
		{ErrorCodeConflict, http.StatusConflict},
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeJSON, http.StatusBadRequest},
		{ErrorCodeConfiguration, http.StatusBadRequest},
		{ErrorCodeAlignmentRejected, http.StatusBadRequest},
		{ErrorCodeConsistency, http.StatusPreconditionFailed},
		{ErrorCodeExternalTool, http.StatusServiceUnavailable},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeDB, http.StatusInternalServerError},
		{ErrorCodePanic, http.StatusInternalServerError},
		{ErrorCodeUnknown, http.StatusInternalServerError},
		{9999, http.StatusInternalServerError}, // default branch
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestError_RenderAndUnwrap(t *testing.T) {
	var nilErr *Error
	if nilErr.Error() != "<nil>" {
		t.Fatalf("nil render = %q", nilErr.Error())
	}
	if got := Newf(ErrorCodeValidation, "min_similarity %.2f out of range", 1.5).Error(); got != "min_similarity 1.50 out of range" {
		t.Fatalf("Newf = %q", got)
	}

	src := stderrs.New("exit status 1")
	e := Wrapf(src, ErrorCodeExternalTool, "tree builder %s", "failed")
	if e.Error() != "tree builder failed: exit status 1" {
		t.Fatalf("Wrapf = %q", e.Error())
	}
	if stderrs.Unwrap(e) != src {
		t.Fatalf("cause lost")
	}
	if got, ok := As(e); !ok || got.Code() != ErrorCodeExternalTool {
		t.Fatalf("As failed")
	}
	if _, ok := As(src); ok {
		t.Fatalf("As true for foreign error")
	}
	deep := fmt.Errorf("bucket: %w", fmt.Errorf("clone: %w", src))
	if Root(deep) != src {
		t.Fatalf("Root = %v", Root(deep))
	}
}

func TestError_CopyOnWriteMetadata(t *testing.T) {
	base := InvalidArgf("unknown locus")
	withField := WithField(base, "locus")
	withOp := WithOp(withField, "clones.list")
	if fe, _ := As(withField); fe.Field() != "locus" {
		t.Fatalf("WithField failed")
	}
	if oe, _ := As(withOp); oe.Op() != "clones.list" || oe.Field() != "locus" {
		t.Fatalf("WithOp failed")
	}
	if got := withOp.Error(); got != "clones.list: unknown locus" {
		t.Fatalf("render with op = %q", got)
	}
	if b, _ := As(base); b.Field() != "" || b.Op() != "" {
		t.Fatalf("original mutated")
	}
	foreign := stderrs.New("x")
	if WithField(foreign, "f") != foreign {
		t.Fatalf("foreign error should pass through")
	}
}

func TestWireFrom(t *testing.T) {
	if WireFrom(nil) != (Wire{}) {
		t.Fatalf("nil should give zero wire")
	}
	w := WireFrom(WithField(Consistencyf("collapse subject P1 first"), "subject"))
	if w.Code != ErrorCodeConsistency || w.Message != "collapse subject P1 first" || w.Field != "subject" {
		t.Fatalf("wire = %+v", w)
	}
	if w := WireFrom(Wrap(stderrs.New("secret dsn"), ErrorCodeDB, "clones: list")); w.Message != "clones: list" {
		t.Fatalf("wire must not leak the cause: %+v", w)
	}
	if w := WireFrom(stderrs.New("boom")); w.Code != ErrorCodeUnknown || w.Message != "boom" {
		t.Fatalf("foreign wire = %+v", w)
	}
	if HTTPStatus(NotFoundf("clone 9")) != http.StatusNotFound {
		t.Fatalf("HTTPStatus mismatch")
	}
}

func TestConstructorsAndFatal(t *testing.T) {
	cases := map[ErrorCode]error{
		ErrorCodeNotFound:          NotFoundf("x"),
		ErrorCodeInvalidArgument:   InvalidArgf("x"),
		ErrorCodePanic:             PanicErrf("x"),
		ErrorCodeAlignmentRejected: Rejectedf("x"),
		ErrorCodeConfiguration:     Configf("x"),
		ErrorCodeExternalTool:      ExternalToolf("x"),
		ErrorCodeConsistency:       Consistencyf("x"),
		ErrorCodeUnknown:           Internalf("x"),
	}
	for code, err := range cases {
		if !IsCode(err, code) {
			t.Fatalf("%v: got %v", code, CodeOf(err))
		}
	}
	if !IsCode(ErrNotFound, ErrorCodeNotFound) {
		t.Fatalf("ErrNotFound code mismatch")
	}

	if !IsFatal(Wrap(Configf("max_padding < trim_to"), ErrorCodeConfiguration, "identify")) {
		t.Fatalf("configuration error should be fatal")
	}
	if IsFatal(ExternalToolf("timeout")) || IsFatal(Rejectedf("low similarity")) {
		t.Fatalf("per-item errors should not be fatal")
	}
}

func TestErrorCode_String(t *testing.T) {
	if ErrorCodeConsistency.String() != "consistency" || ErrorCodeAlignmentRejected.String() != "alignment_rejected" {
		t.Fatalf("names = %s %s", ErrorCodeConsistency, ErrorCodeAlignmentRejected)
	}
	if got := ErrorCode(9999).String(); got != "code(9999)" {
		t.Fatalf("unknown code = %q", got)
	}
}
