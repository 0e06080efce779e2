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
	"errors"
	"fmt"
	"net/http"

	"github.com/magengit/couchrest/chttp"
)

// Kind classifies the failure of a call.
type Kind int

// The failure kinds reported by the engines.
const (
	// KindNone is returned by KindOf for a nil error.
	KindNone Kind = iota
	// KindNotFound means the target document or database does not exist.
	KindNotFound
	// KindUnauthorized means the server denied permission.
	KindUnauthorized
	// KindConflict means the document revision was stale or missing.
	KindConflict
	// KindMalformedResponse means a response body could not be decoded.
	KindMalformedResponse
	// KindUnsupportedResponse means the response had an unexpected shape,
	// such as a bulk listing that was not sent with chunked encoding.
	KindUnsupportedResponse
	// KindUnexpectedStatus means the server replied with a status that the
	// operation does not handle.
	KindUnexpectedStatus
	// KindBadRequest means the caller supplied invalid input.
	KindBadRequest
	// KindNetwork means the request could not be completed.
	KindNetwork
)

var kindNames = map[Kind]string{
	KindNone:                "none",
	KindNotFound:            "not found",
	KindUnauthorized:        "unauthorized",
	KindConflict:            "conflict",
	KindMalformedResponse:   "malformed response",
	KindUnsupportedResponse: "unsupported response",
	KindUnexpectedStatus:    "unexpected status",
	KindBadRequest:          "bad request",
	KindNetwork:             "network error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the error type returned by all Client methods. It carries the
// failure kind and the HTTP status associated with it.
type Error struct {
	Kind   Kind
	Status int
	Err    error
}

var _ error = &Error{}

func (e *Error) Error() string {
	if e.Err == nil {
		return "couchrest: " + e.Kind.String()
	}
	return e.Err.Error()
}

// StatusCode returns the HTTP status code associated with the error.
func (e *Error) StatusCode() int {
	return e.Status
}

// HTTPStatus returns the HTTP status code associated with the error.
func (e *Error) HTTPStatus() int {
	return e.Status
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

type statusCoder interface {
	StatusCode() int
}

// KindOf returns the Kind of err. Errors which are not of type *Error are
// classified by their embedded HTTP status, if any.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return kindForStatus(StatusCode(err))
}

// StatusCode returns the HTTP status code embedded in err, 0 for a nil error,
// or 500 if err carries no status.
func StatusCode(err error) int {
	if err == nil {
		return 0
	}
	var coder statusCoder
	if errors.As(err, &coder) {
		return coder.StatusCode()
	}
	return http.StatusInternalServerError
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	}
	return KindUnexpectedStatus
}

func missingArg(arg string) error {
	return &Error{
		Kind:   KindBadRequest,
		Status: http.StatusBadRequest,
		Err:    fmt.Errorf("couchrest: %s required", arg),
	}
}

func badRequest(err error) error {
	return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Err: err}
}

func malformed(err error) error {
	return &Error{Kind: KindMalformedResponse, Status: http.StatusBadGateway, Err: err}
}

// responseError converts a non-success response into an *Error, classified
// by its status code.
func responseError(res *chttp.Response) error {
	return statusError(kindForStatus(res.StatusCode), res)
}

// unexpectedStatus converts res into an *Error of KindUnexpectedStatus,
// regardless of the status code.
func unexpectedStatus(res *chttp.Response) error {
	return statusError(KindUnexpectedStatus, res)
}

func statusError(kind Kind, res *chttp.Response) error {
	err := chttp.ErrorFromBody(res.StatusCode, res.JSON)
	if err == nil {
		err = fmt.Errorf("couchrest: unexpected status %d %s", res.StatusCode, http.StatusText(res.StatusCode))
	}
	return &Error{Kind: kind, Status: res.StatusCode, Err: err}
}

// wrapError converts an error returned by the transport into an *Error.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	var httpErr *chttp.HTTPError
	if errors.As(err, &httpErr) {
		return &Error{Kind: kindForStatus(httpErr.Code), Status: httpErr.Code, Err: err}
	}
	status := StatusCode(err)
	if status == http.StatusBadRequest {
		return &Error{Kind: KindBadRequest, Status: status, Err: err}
	}
	return &Error{Kind: KindNetwork, Status: status, Err: err}
}
