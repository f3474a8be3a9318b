// Package codec reads and writes delimited clone association files: a
// seq_id, clone_id header followed by one association per line
package codec

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	perr "repertoire/internal/platform/errors"
	"repertoire/internal/services/exchange/domain"
)

// Header is the first line of every written file
var Header = []string{"seq_id", "clone_id"}

// Writer writes associations as they come
type Writer struct{ w *csv.Writer }

// NewWriter writes the header and returns a Writer; delim zero means tab
func NewWriter(w io.Writer, delim rune) (*Writer, error) {
	cw := csv.NewWriter(w)
	cw.Comma = orTab(delim)
	if err := cw.Write(Header); err != nil {
		return nil, err
	}
	return &Writer{w: cw}, nil
}

// Write appends one association
func (w *Writer) Write(a domain.Assoc) error {
	return w.w.Write([]string{strconv.FormatInt(a.SeqID, 10), strconv.FormatInt(a.CloneID, 10)})
}

// Flush flushes buffered lines and reports any write error
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// Read parses every association. A header line is skipped, blank lines and
// lines starting with # are ignored, and extra columns are allowed
func Read(r io.Reader, delim rune) ([]domain.Assoc, error) {
	cr := csv.NewReader(r)
	cr.Comma = orTab(delim)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []domain.Assoc
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeValidation, "codec: malformed association file")
		}
		if first && strings.EqualFold(strings.TrimSpace(rec[0]), Header[0]) {
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 2 {
			return nil, perr.Newf(perr.ErrorCodeValidation, "codec: line %d: want seq_id and clone_id", line)
		}
		seq, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			return nil, perr.Newf(perr.ErrorCodeValidation, "codec: line %d: bad seq_id %q", line, rec[0])
		}
		clone, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			return nil, perr.Newf(perr.ErrorCodeValidation, "codec: line %d: bad clone_id %q", line, rec[1])
		}
		out = append(out, domain.Assoc{SeqID: seq, CloneID: clone})
	}
}

func orTab(r rune) rune {
	if r == 0 {
		return '\t'
	}
	return r
}
