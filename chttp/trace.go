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

package chttp

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

type clientTraceContextKey struct{}

// ContextClientTrace returns the ClientTrace installed in ctx by
// WithClientTrace, or nil.
func ContextClientTrace(ctx context.Context) *ClientTrace {
	trace, _ := ctx.Value(clientTraceContextKey{}).(*ClientTrace)
	return trace
}

// ClientTrace holds hooks called around each request made by DoReq. Nil
// hooks are skipped. Hooks receive copies, so they cannot alter the request
// or response.
type ClientTrace struct {
	// HTTPResponse sees each response, without its body.
	HTTPResponse func(*http.Response)

	// HTTPResponseBody sees each response with a copy of its body. The body
	// is read in full first, so a chunked _all_docs stream is no longer
	// consumed incrementally.
	HTTPResponseBody func(*http.Response)

	// HTTPRequest sees each request, without its body.
	HTTPRequest func(*http.Request)

	// HTTPRequestBody sees each request with a copy of its body.
	HTTPRequestBody func(*http.Request)
}

// WithClientTrace returns a copy of ctx carrying trace. Requests made with
// the returned context call its hooks. It panics if trace is nil.
func WithClientTrace(ctx context.Context, trace *ClientTrace) context.Context {
	if trace == nil {
		panic("nil trace")
	}
	return context.WithValue(ctx, clientTraceContextKey{}, trace)
}

func (t *ClientTrace) httpResponse(r *http.Response) {
	if t.HTTPResponse == nil {
		return
	}
	clone := &http.Response{}
	*clone = *r
	clone.Body = nil
	t.HTTPResponse(clone)
}

func (t *ClientTrace) httpResponseBody(r *http.Response) {
	if t.HTTPResponseBody == nil {
		return
	}
	clone := &http.Response{}
	*clone = *r
	r.Body, clone.Body = copyBody(r.Body)
	t.HTTPResponseBody(clone)
}

func (t *ClientTrace) httpRequest(r *http.Request) {
	if t.HTTPRequest == nil {
		return
	}
	clone := &http.Request{}
	*clone = *r
	clone.Body = nil
	t.HTTPRequest(clone)
}

func (t *ClientTrace) httpRequestBody(r *http.Request) {
	if t.HTTPRequestBody == nil {
		return
	}
	clone := &http.Request{}
	*clone = *r
	if r.Body != nil {
		r.Body, clone.Body = copyBody(r.Body)
	}
	t.HTTPRequestBody(clone)
}

// copyBody reads and closes body, and returns two independent replays of it.
func copyBody(body io.ReadCloser) (io.ReadCloser, io.ReadCloser) {
	data, readErr := io.ReadAll(body)
	closeErr := body.Close()
	return newReplay(data, readErr, closeErr), newReplay(data, readErr, closeErr)
}

func newReplay(body []byte, readErr, closeErr error) io.ReadCloser {
	if readErr == nil && closeErr == nil {
		return io.NopCloser(bytes.NewReader(body))
	}
	return &replayReadCloser{
		Reader:   io.NopCloser(bytes.NewReader(body)),
		readErr:  readErr,
		closeErr: closeErr,
	}
}

// replayReadCloser serves a body that was already read, then reports the
// errors the original body returned.
type replayReadCloser struct {
	io.Reader
	readErr  error
	closeErr error
}

func (r *replayReadCloser) Read(p []byte) (int, error) {
	c, err := r.Reader.Read(p)
	if err == io.EOF && r.readErr != nil {
		err = r.readErr
	}
	return c, err
}

func (r *replayReadCloser) Close() error {
	return r.closeErr
}
