// Package fasta streams FASTA records from plain, gzipped or stdin sources
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"strings"
	"unicode"

	perr "repertoire/internal/platform/errors"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Record is one FASTA entry; Seq is uppercased with whitespace removed
type Record struct {
	ID   string
	Desc string
	Seq  string
}

// headerClean drops control and format runes that show up in exported headers
var headerClean = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.IsControl(r) || unicode.Is(unicode.Cf, r)
}))

// Open returns a reader for path; "-" is stdin and a .gz suffix is decompressed
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "open fasta %s", path)
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "gzip %s", path)
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}

// Stream calls fn for every record in r in file order. A non-nil error from fn stops the scan
func Stream(r io.Reader, fn func(Record) error) error {
	br := bufio.NewReader(r)
	var (
		cur  Record
		seq  bytes.Buffer
		open bool
	)
	flush := func() error {
		if !open {
			return nil
		}
		cur.Seq = seq.String()
		seq.Reset()
		return fn(cur)
	}

	for {
		line, err := br.ReadBytes('\n')
		eof := err == io.EOF
		if err != nil && !eof {
			return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "read fasta")
		}
		line = bytes.TrimRight(line, "\r\n")
		switch {
		case len(line) == 0:
		case line[0] == '>':
			if err := flush(); err != nil {
				return err
			}
			cur = parseHeader(line[1:])
			open = true
		case line[0] == ';':
			// comment line
		default:
			if !open {
				return perr.InvalidArgf("fasta: sequence data before first header")
			}
			for _, b := range line {
				if b == ' ' || b == '\t' {
					continue
				}
				if b >= 'a' && b <= 'z' {
					b -= 'a' - 'A'
				}
				seq.WriteByte(b)
			}
		}
		if eof {
			break
		}
	}
	return flush()
}

// ReadAll collects every record of r
func ReadAll(r io.Reader) ([]Record, error) {
	var out []Record
	err := Stream(r, func(rec Record) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ReadFile opens path with Open and collects every record
func ReadFile(path string) ([]Record, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadAll(rc)
}

// Write emits records with sequences wrapped at width columns (0 = single line)
func Write(w io.Writer, width int, recs ...Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		bw.WriteByte('>')
		bw.WriteString(rec.ID)
		if rec.Desc != "" {
			bw.WriteByte(' ')
			bw.WriteString(rec.Desc)
		}
		bw.WriteByte('\n')
		s := rec.Seq
		for width > 0 && len(s) > width {
			bw.WriteString(s[:width])
			bw.WriteByte('\n')
			s = s[width:]
		}
		bw.WriteString(s)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func parseHeader(h []byte) Record {
	clean, _, err := transform.Bytes(headerClean, h)
	if err != nil {
		clean = h
	}
	s := strings.TrimSpace(string(clean))
	id, desc, _ := strings.Cut(s, " ")
	return Record{ID: id, Desc: strings.TrimSpace(desc)}
}
