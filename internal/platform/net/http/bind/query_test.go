package bind

import (
	"net/http/httptest"
	"testing"

	perr "repertoire/internal/platform/errors"
)

type listQuery struct {
	Subjects []string `query:"subject" json:"subject"`
	IDs      []int64  `query:"id" json:"id"`
	Locus    string   `query:"locus" json:"locus" validate:"omitempty,locus"`
	Limit    int      `query:"limit" json:"limit" validate:"omitempty,min=1,max=500"`
	Stops    bool     `query:"exclude_stops" json:"exclude_stops"`
	skipped  string
}

func TestQuery_DecodesTaggedFields(t *testing.T) {
	req := httptest.NewRequest("GET", "/?subject=s1,%20s2&id=3,4&locus=IGH&limit=20&exclude_stops=true", nil)
	got, err := Query[listQuery](req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Subjects) != 2 || got.Subjects[1] != "s2" {
		t.Fatalf("subjects = %#v", got.Subjects)
	}
	if len(got.IDs) != 2 || got.IDs[0] != 3 || got.IDs[1] != 4 {
		t.Fatalf("ids = %#v", got.IDs)
	}
	if got.Locus != "IGH" || got.Limit != 20 || !got.Stops {
		t.Fatalf("got %+v", got)
	}
	if got.skipped != "" {
		t.Fatalf("unexported field touched")
	}
}

func TestQuery_EmptyLeavesZeroValues(t *testing.T) {
	got, err := Query[listQuery](httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Limit != 0 || got.Subjects != nil {
		t.Fatalf("got %+v", got)
	}
}

func TestQuery_BadNumber(t *testing.T) {
	_, err := Query[listQuery](httptest.NewRequest("GET", "/?limit=many", nil))
	if perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
	}
}

func TestQuery_ValidationFailure(t *testing.T) {
	_, err := Query[listQuery](httptest.NewRequest("GET", "/?locus=XYZ", nil))
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
	}
}

type overlayQuery struct {
	MinCopies *int  `query:"min_copies" json:"min_copies" validate:"omitempty,gte=0"`
	Stops     *bool `query:"exclude_stops" json:"exclude_stops"`
}

func TestQuery_PointersMarkPresence(t *testing.T) {
	got, err := Query[overlayQuery](httptest.NewRequest("GET", "/?min_copies=3", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MinCopies == nil || *got.MinCopies != 3 {
		t.Fatalf("min_copies = %v", got.MinCopies)
	}
	if got.Stops != nil {
		t.Fatalf("exclude_stops should stay nil")
	}

	_, err = Query[overlayQuery](httptest.NewRequest("GET", "/?min_copies=-1", nil))
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
	}
}
