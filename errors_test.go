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
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"gitlab.com/flimzy/testy"

	"github.com/magengit/couchrest/chttp"
)

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		KindNone:                "none",
		KindNotFound:            "not found",
		KindConflict:            "conflict",
		KindUnsupportedResponse: "unsupported response",
		KindNetwork:             "network error",
		Kind(99):                "Kind(99)",
	}
	for kind, want := range tests {
		if got := kind.String(); got != want {
			t.Errorf("%d: expected %q, got %q", int(kind), want, got)
		}
	}
}

func TestErrorError(t *testing.T) {
	err := &Error{Kind: KindConflict, Status: http.StatusConflict}
	testy.Error(t, "couchrest: conflict", err)

	err = &Error{Kind: KindNotFound, Status: http.StatusNotFound, Err: errors.New("missing")}
	testy.StatusError(t, "missing", http.StatusNotFound, err)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "nil",
			want: KindNone,
		},
		{
			name: "Error",
			err:  &Error{Kind: KindMalformedResponse},
			want: KindMalformedResponse,
		},
		{
			name: "wrapped Error",
			err:  fmt.Errorf("context: %w", &Error{Kind: KindConflict}),
			want: KindConflict,
		},
		{
			name: "http error",
			err:  &chttp.HTTPError{Code: http.StatusUnauthorized},
			want: KindUnauthorized,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: KindUnexpectedStatus,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	if got := StatusCode(nil); got != 0 {
		t.Errorf("nil: got %d", got)
	}
	if got := StatusCode(errors.New("x")); got != http.StatusInternalServerError {
		t.Errorf("plain: got %d", got)
	}
	if got := StatusCode(&Error{Status: http.StatusConflict}); got != http.StatusConflict {
		t.Errorf("Error: got %d", got)
	}
}

func TestResponseErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		body   string
		kind   Kind
		err    string
	}{
		{http.StatusNotFound, `{"error":"not_found","reason":"missing"}`, KindNotFound, "Not Found: missing"},
		{http.StatusUnauthorized, `{"error":"unauthorized","reason":"nope"}`, KindUnauthorized, "Unauthorized: nope"},
		{http.StatusConflict, `{"error":"conflict","reason":"Document update conflict."}`, KindConflict, "Conflict: Document update conflict."},
		{http.StatusBadRequest, `{"error":"bad_request","reason":"invalid UTF-8 JSON"}`, KindBadRequest, "Bad Request: invalid UTF-8 JSON"},
		{http.StatusInternalServerError, ``, KindUnexpectedStatus, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, _ := newTestClient(t, jsonResponse(tt.status, tt.body), nil)
			res, err := c.Do(context.Background(), http.MethodGet, "/foo", nil)
			if err != nil {
				t.Fatal(err)
			}
			err = responseError(res)
			if got := KindOf(err); got != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, got)
			}
			testy.StatusError(t, tt.err, tt.status, err)
		})
	}
}

func TestUnexpectedStatusWithoutBody(t *testing.T) {
	c, _ := newTestClient(t, &http.Response{
		StatusCode: http.StatusAccepted,
		Header:     http.Header{},
		Body:       Body(""),
	}, nil)
	res, err := c.Do(context.Background(), http.MethodGet, "/foo", nil)
	if err != nil {
		t.Fatal(err)
	}
	err = unexpectedStatus(res)
	if KindOf(err) != KindUnexpectedStatus {
		t.Errorf("unexpected kind %s", KindOf(err))
	}
	testy.StatusError(t, "couchrest: unexpected status 202 Accepted", http.StatusAccepted, err)
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		kind   Kind
		status int
	}{
		{
			name:   "already wrapped",
			err:    &Error{Kind: KindConflict, Status: http.StatusConflict},
			kind:   KindConflict,
			status: http.StatusConflict,
		},
		{
			name:   "http error",
			err:    &chttp.HTTPError{Code: http.StatusNotFound},
			kind:   KindNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "plain",
			err:    errors.New("connection refused"),
			kind:   KindNetwork,
			status: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapError(tt.err)
			if got := KindOf(err); got != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, got)
			}
			if got := StatusCode(err); got != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, got)
			}
		})
	}
	if wrapError(nil) != nil {
		t.Error("nil should stay nil")
	}
}
