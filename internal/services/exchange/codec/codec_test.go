package codec

import (
	"bytes"
	"strings"
	"testing"

	perr "repertoire/internal/platform/errors"
	"repertoire/internal/services/exchange/domain"
)

func TestWriter_HeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 0)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	_ = w.Write(domain.Assoc{SeqID: 3, CloneID: 1})
	_ = w.Write(domain.Assoc{SeqID: 4, CloneID: 1})
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got, want := buf.String(), "seq_id\tclone_id\n3\t1\n4\t1\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRead_SkipsHeaderCommentsAndExtraColumns(t *testing.T) {
	in := "seq_id,clone_id\n# produced elsewhere\n10, 1,extra\n\n11,2\n"
	got, err := Read(strings.NewReader(in), ',')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []domain.Assoc{{SeqID: 10, CloneID: 1}, {SeqID: 11, CloneID: 2}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %+v", got)
	}

	headless, err := Read(strings.NewReader("5\t9\n"), 0)
	if err != nil || len(headless) != 1 || headless[0] != (domain.Assoc{SeqID: 5, CloneID: 9}) {
		t.Fatalf("headless: %+v %v", headless, err)
	}
}

func TestRead_Errors(t *testing.T) {
	for name, in := range map[string]string{
		"bad seq":   "x\t1\n",
		"bad clone": "1\ty\n",
		"one field": "1\n",
	} {
		if _, err := Read(strings.NewReader(in), 0); !perr.IsCode(err, perr.ErrorCodeValidation) {
			t.Fatalf("%s: want validation error, got %v", name, err)
		}
	}
}
