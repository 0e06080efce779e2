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

package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"gitlab.com/flimzy/testy"

	"github.com/magengit/couchrest"
	"github.com/magengit/couchrest/chttp"
)

func TestInspectErrorCode(t *testing.T) {
	type tt struct {
		err  error
		want int
	}

	tests := testy.NewTable()
	tests.Add("nil", tt{
		err:  nil,
		want: 0,
	})
	tests.Add("plain error", tt{
		err:  errors.New("unknown flag: --foo"),
		want: 0,
	})
	tests.Add("explicit code", tt{
		err:  Code(ErrNoInput, "no such file"),
		want: ErrNoInput,
	})
	tests.Add("wrapped explicit code", tt{
		err:  fmt.Errorf("reading: %w", WithCode(errors.New("boom"), ErrIO)),
		want: ErrIO,
	})
	tests.Add("not found", tt{
		err:  &couchrest.Error{Kind: couchrest.KindNotFound, Status: http.StatusNotFound},
		want: ErrNotFound,
	})
	tests.Add("conflict", tt{
		err:  &couchrest.Error{Kind: couchrest.KindConflict, Status: http.StatusConflict},
		want: ErrConflict,
	})
	tests.Add("unauthorized", tt{
		err:  &couchrest.Error{Kind: couchrest.KindUnauthorized, Status: http.StatusUnauthorized},
		want: ErrUnauthorized,
	})
	tests.Add("server error", tt{
		err:  &couchrest.Error{Kind: couchrest.KindUnexpectedStatus, Status: http.StatusInternalServerError},
		want: ErrInternalServerError,
	})
	tests.Add("service unavailable", tt{
		err:  &couchrest.Error{Kind: couchrest.KindUnexpectedStatus, Status: http.StatusServiceUnavailable},
		want: ErrUnknown,
	})
	tests.Add("malformed response", tt{
		err:  &couchrest.Error{Kind: couchrest.KindMalformedResponse, Status: http.StatusBadGateway},
		want: ErrProtocol,
	})
	tests.Add("unsupported response", tt{
		err:  &couchrest.Error{Kind: couchrest.KindUnsupportedResponse, Status: http.StatusBadGateway},
		want: ErrProtocol,
	})
	tests.Add("network", tt{
		err:  &couchrest.Error{Kind: couchrest.KindNetwork, Status: http.StatusBadGateway, Err: errors.New("connection refused")},
		want: ErrUnavailable,
	})
	tests.Add("net.Error", tt{
		err:  fmt.Errorf("dial: %w", &net.OpError{Op: "dial", Err: errors.New("connection refused")}),
		want: ErrUnavailable,
	})
	tests.Add("json syntax", tt{
		err:  json.Unmarshal([]byte("{"), &struct{}{}),
		want: ErrProtocol,
	})
	tests.Add("chttp error", tt{
		err:  &chttp.HTTPError{Code: http.StatusPreconditionFailed},
		want: ErrPreconditionFailed,
	})

	tests.Run(t, func(t *testing.T, tt tt) {
		if got := InspectErrorCode(tt.err); got != tt.want {
			t.Errorf("Unexpected code. Want %d, got %d", tt.want, got)
		}
	})
}

func TestCode(t *testing.T) {
	if err := Code(ErrUsage, nil); err != nil {
		t.Errorf("Expected nil for a nil error, got %v", err)
	}
	err := Codef(ErrData, "bad %s", "input")
	if err.Error() != "bad input" {
		t.Errorf("Unexpected message: %s", err)
	}
	if code := InspectErrorCode(HTTPStatus(http.StatusForbidden, "nope")); code != ErrForbidden {
		t.Errorf("Unexpected code for 403: %d", code)
	}
}
