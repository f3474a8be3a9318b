package service

import (
	"context"

	"repertoire/internal/core/align"
	"repertoire/internal/core/fasta"
)

// uniqueRead is one distinct sequence of a sample and the raw reads behind it
type uniqueRead struct {
	align.Read
	IDs []string
}

// readSample streams a FASTA file and folds identical sequences together in
// order of first appearance. total counts every non-empty record
func readSample(ctx context.Context, path string) (reads []uniqueRead, total int, err error) {
	fh, err := fasta.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = fh.Close() }()

	index := make(map[string]int)
	err = fasta.Stream(fh, func(rec fasta.Record) error {
		if rec.Seq == "" {
			return nil
		}
		total++
		if total%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if i, ok := index[rec.Seq]; ok {
			reads[i].Copies++
			reads[i].IDs = append(reads[i].IDs, rec.ID)
			return nil
		}
		index[rec.Seq] = len(reads)
		reads = append(reads, uniqueRead{
			Read: align.Read{ID: rec.ID, Seq: rec.Seq, Copies: 1},
			IDs:  []string{rec.ID},
		})
		return nil
	})
	return reads, total, err
}
