// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package couchrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/magengit/couchrest/log"
)

const readSize = 32 * 1024

// chunkBuffer accumulates raw bytes from a streamed response body, and cuts
// them into records at newlines. Text up to a newline that does not yet hold a
// complete record is kept and joined with the bytes that follow, until a
// fragment ending in a newline forces it out.
type chunkBuffer struct {
	buf []byte
}

// write appends the fragment p and returns every record completed by it, in
// order. The returned slices are owned by the caller.
func (b *chunkBuffer) write(p []byte) [][]byte {
	b.buf = append(b.buf, p...)
	var records [][]byte
	start, from := 0, 0
	for {
		i := bytes.IndexByte(b.buf[from:], '\n')
		if i < 0 {
			break
		}
		end := from + i
		from = end + 1
		if !recordComplete(b.buf[start:end]) {
			continue
		}
		records = append(records, append([]byte{}, b.buf[start:end]...))
		start = from
	}
	if start < len(b.buf) && bytes.HasSuffix(p, []byte{'\n'}) {
		records = append(records, append([]byte{}, b.buf[start:len(b.buf)-1]...))
		start = len(b.buf)
	}
	if start > 0 {
		b.buf = append(b.buf[:0], b.buf[start:]...)
	}
	return records
}

// trimRecord strips surrounding whitespace and the commas separating rows.
func trimRecord(line []byte) []byte {
	return bytes.TrimSpace(bytes.Trim(bytes.TrimSpace(line), ","))
}

// recordComplete reports whether line can be handed to the parser: a blank
// line, an envelope line, or a complete JSON value.
func recordComplete(line []byte) bool {
	line = trimRecord(line)
	switch {
	case len(line) == 0, line[0] == ']':
		return true
	case bytes.HasPrefix(line, envelopeStart) && bytes.HasSuffix(line, rowsOpen):
		return true
	}
	return json.Valid(line)
}

// flush returns the unterminated remainder, if it holds anything other than
// whitespace, and empties the buffer.
func (b *chunkBuffer) flush() []byte {
	defer b.reset()
	rest := bytes.TrimSpace(b.buf)
	if len(rest) == 0 {
		return nil
	}
	return append([]byte{}, rest...)
}

func (b *chunkBuffer) reset() {
	b.buf = b.buf[:0]
}

// Rows is a lazy, ordered sequence of records read from a bulk listing. It
// cannot be restarted. Call Next to advance, and Close when done.
type Rows struct {
	ctx  context.Context
	body io.ReadCloser
	log  log.Logger
	name string

	buf     chunkBuffer
	scratch []byte
	pending [][]byte
	eof     bool

	doc       Document
	count     int
	err       error
	closed    bool
	totalRows int64
	offset    int64
}

func newRows(ctx context.Context, name string, body io.ReadCloser, logger log.Logger) *Rows {
	return &Rows{
		ctx:     ctx,
		body:    body,
		log:     logger,
		name:    name,
		scratch: make([]byte, readSize),
	}
}

// Next prepares the next record for reading with Doc. It returns false when
// the sequence is exhausted, or after an error. Check Err to tell the two
// apart.
func (r *Rows) Next() bool {
	for {
		if r.closed {
			return false
		}
		if len(r.pending) > 0 {
			line := r.pending[0]
			r.pending = r.pending[1:]
			ok, err := r.parseLine(line)
			if err != nil {
				r.err = err
				_ = r.Close()
				return false
			}
			if ok {
				return true
			}
			continue
		}
		if r.eof {
			_ = r.Close()
			return false
		}
		r.fill()
	}
}

// fill reads the next fragment of the body into the buffer.
func (r *Rows) fill() {
	n, err := r.body.Read(r.scratch)
	if n > 0 {
		r.pending = append(r.pending, r.buf.write(r.scratch[:n])...)
	}
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		if rest := r.buf.flush(); rest != nil {
			r.pending = append(r.pending, rest)
		}
		r.eof = true
	case r.ctx.Err() != nil:
		r.err = &Error{Kind: KindNetwork, Status: http.StatusBadGateway, Err: r.ctx.Err()}
		r.pending = nil
		r.eof = true
	default:
		r.log.Infof("couchrest: %s: stream interrupted after %d records, ending listing: %s", r.name, r.count+len(r.pending), err)
		r.buf.reset()
		r.eof = true
	}
}

var (
	envelopeStart = []byte(`{"total_rows"`)
	rowsOpen      = []byte(`"rows":[`)
)

// parseLine interprets one newline-delimited record. It returns true if the
// line held a record, and false for blank lines and envelope lines.
func (r *Rows) parseLine(line []byte) (bool, error) {
	line = trimRecord(line)
	if len(line) == 0 {
		return false, nil
	}
	if line[0] == ']' {
		return false, nil
	}
	if bytes.HasPrefix(line, envelopeStart) {
		return false, r.parseEnvelope(line)
	}
	var doc Document
	if err := json.Unmarshal(line, &doc); err != nil {
		r.log.Errorf("couchrest: %s: malformed record %q: %s", r.name, line, err)
		return false, malformed(fmt.Errorf("couchrest: malformed record: %w", err))
	}
	r.doc = doc
	r.count++
	return true, nil
}

// parseEnvelope reads total_rows and offset from the opening line of the
// standard _all_docs envelope. A complete envelope on a single line has its
// rows queued for reading. A header line that also carries the first row is
// not recognised; CouchDB puts each row on its own line.
func (r *Rows) parseEnvelope(line []byte) error {
	if bytes.HasSuffix(line, rowsOpen) {
		line = append(append([]byte{}, line...), "]}"...)
	}
	var envelope struct {
		TotalRows int64             `json:"total_rows"`
		Offset    int64             `json:"offset"`
		Rows      []json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(line, &envelope); err != nil {
		r.log.Errorf("couchrest: %s: malformed envelope %q: %s", r.name, line, err)
		return malformed(fmt.Errorf("couchrest: malformed envelope: %w", err))
	}
	r.totalRows = envelope.TotalRows
	r.offset = envelope.Offset
	rows := make([][]byte, 0, len(envelope.Rows)+len(r.pending))
	for _, row := range envelope.Rows {
		rows = append(rows, row)
	}
	r.pending = append(rows, r.pending...)
	return nil
}

// Doc returns the current record.
func (r *Rows) Doc() Document {
	return r.doc
}

// ScanDoc unmarshals the current record into dest.
func (r *Rows) ScanDoc(dest interface{}) error {
	data, err := json.Marshal(r.doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Err returns the error, if any, which ended the sequence. An interrupted
// stream is not an error.
func (r *Rows) Err() error {
	return r.err
}

// TotalRows returns the total_rows value from the response envelope, or 0 if
// the server did not send one.
func (r *Rows) TotalRows() int64 {
	return r.totalRows
}

// Offset returns the offset value from the response envelope.
func (r *Rows) Offset() int64 {
	return r.offset
}

// Close releases the response body. It is safe to call more than once.
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.pending = nil
	r.buf.reset()
	return r.body.Close()
}
