package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// bookAdder is the part of the library the importer writes to.
type bookAdder interface {
	AddBook(ctx context.Context, title string, pageCount int) (int64, error)
}

type importResult struct {
	Imported []int64
	Failures []string
}

// importBooks reads title,page_count rows and adds each as a book. A header
// row and blank lines are skipped. Bad rows are reported and the import goes
// on; a malformed CSV stream stops it.
func importBooks(ctx context.Context, lib bookAdder, r io.Reader) (*importResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	res := &importResult{}
	for first := true; ; first = false {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		line, _ := cr.FieldPos(0)
		if first && strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
			continue
		}
		if len(rec) != 2 {
			res.Failures = append(res.Failures, fmt.Sprintf("line %d: want 2 fields, got %d", line, len(rec)))
			continue
		}

		pages, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			res.Failures = append(res.Failures, fmt.Sprintf("line %d: page count %q is not a number", line, rec[1]))
			continue
		}
		id, err := lib.AddBook(ctx, rec[0], pages)
		if err != nil {
			res.Failures = append(res.Failures, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		res.Imported = append(res.Imported, id)
	}
}
