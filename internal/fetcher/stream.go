package fetcher

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Stream delivers decoded items from a producer goroutine. Err yields at
// most one error and closes after Items.
type Stream[T any] struct {
	Items <-chan T
	Err   <-chan error
}

// Collect drains the stream.
func (s Stream[T]) Collect() ([]T, error) {
	var out []T
	for it := range s.Items {
		out = append(out, it)
	}
	for err := range s.Err {
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// CSVOptions configures StreamCSV.
type CSVOptions struct {
	Comma   rune // default ','
	Comment rune
	// Header reads the first record synchronously into CSVStream.Header.
	Header    bool
	TrimSpace bool
}

// CSVStream is an open CSV document.
type CSVStream struct {
	Header []string
	Stream[[]string]
}

const bom = "\ufeff"

// StreamCSV parses r with lazy quotes and ragged rows allowed. A leading
// UTF-8 byte order mark is dropped. Cells stay strings so identifier codes
// keep their leading zeros.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*CSVStream, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.Comment = opts.Comment
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	first := true
	read := func() ([]string, error) {
		rec, err := reader.Read()
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if len(rec) > 0 {
				rec[0] = strings.TrimPrefix(rec[0], bom)
			}
		}
		if opts.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		return rec, nil
	}

	out := &CSVStream{}
	if opts.Header {
		h, err := read()
		if err == io.EOF {
			return nil, eris.New("csv: no header row")
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read header")
		}
		out.Header = h
	}

	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)
	out.Stream = Stream[[]string]{Items: rowCh, Err: errCh}

	go func() {
		defer close(errCh)
		defer close(rowCh)
		for {
			rec, err := read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}
			select {
			case rowCh <- rec:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: cancelled")
				return
			}
		}
	}()
	return out, nil
}

// StreamJSONArray decodes a top-level JSON array element by element.
// Numbers decode as json.Number. An empty document is an empty array.
func StreamJSONArray[T any](ctx context.Context, r io.Reader) Stream[T] {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(outCh)

		dec := json.NewDecoder(r)
		dec.UseNumber()

		tok, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "json: read document")
			return
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			errCh <- eris.Errorf("json: want an array of records, got %v", tok)
			return
		}

		for i := 0; dec.More(); i++ {
			var item T
			if err := dec.Decode(&item); err != nil {
				errCh <- eris.Wrapf(err, "json: decode element %d", i)
				return
			}
			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: cancelled")
				return
			}
		}
		if _, err := dec.Token(); err != nil {
			errCh <- eris.Wrap(err, "json: read closing bracket")
		}
	}()

	return Stream[T]{Items: outCh, Err: errCh}
}
