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
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/magengit/couchrest/internal/fakecouch"
	"github.com/magengit/couchrest/log"
)

type customTransport func(*http.Request) (*http.Response, error)

var _ http.RoundTripper = customTransport(nil)

func (c customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return c(req)
}

// newCustomClient returns a client whose requests are answered by fn, and the
// logger it writes to.
func newCustomClient(t *testing.T, fn func(*http.Request) (*http.Response, error)) (*Client, *log.TestLogger) {
	t.Helper()
	logger := log.NewTest()
	c, err := New("http://example.com/",
		WithHTTPClient(&http.Client{Transport: customTransport(fn)}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatal(err)
	}
	return c, logger
}

func newTestClient(t *testing.T, resp *http.Response, err error) (*Client, *log.TestLogger) {
	t.Helper()
	return newCustomClient(t, func(req *http.Request) (*http.Response, error) {
		if resp != nil {
			resp.Request = req
		}
		return resp, err
	})
}

// recorded is a request seen by a sequence transport.
type recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// newSequenceClient returns a client which answers its n-th request with
// responses[n], and records every request it sees. Requests beyond the
// supplied responses fail the test.
func newSequenceClient(t *testing.T, responses ...*http.Response) (*Client, *log.TestLogger, *[]recorded) {
	t.Helper()
	var seen []recorded
	reqs := &seen
	c, logger := newCustomClient(t, func(req *http.Request) (*http.Response, error) {
		rec := recorded{
			Method: req.Method,
			Path:   req.URL.EscapedPath(),
			Query:  req.URL.RawQuery,
		}
		if req.Body != nil {
			body, _ := io.ReadAll(req.Body)
			_ = req.Body.Close()
			rec.Body = string(body)
		}
		*reqs = append(*reqs, rec)
		if len(*reqs) > len(responses) {
			t.Errorf("unexpected request %d: %s %s", len(*reqs), req.Method, req.URL)
			return nil, io.ErrUnexpectedEOF
		}
		resp := responses[len(*reqs)-1]
		resp.Request = req
		return resp, nil
	})
	return c, logger, reqs
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       Body(body),
	}
}

// Body returns an io.ReadCloser from a string.
func Body(str string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(str))
}

// newFakeClient starts a fake CouchDB server, and returns a client connected
// to it.
func newFakeClient(t *testing.T, opts ...fakecouch.Option) (*Client, *fakecouch.Server, *log.TestLogger) {
	t.Helper()
	s := fakecouch.New(opts...)
	srv := s.Start()
	t.Cleanup(srv.Close)
	logger := log.NewTest()
	c, err := New(srv.URL, WithHTTPClient(srv.Client()), WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	return c, s, logger
}
