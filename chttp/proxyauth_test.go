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
	"context"
	"net/http"
	"testing"

	"gitlab.com/flimzy/testy"
)

func TestProxyAuthRoundTrip(t *testing.T) {
	type tst struct {
		auth     *ProxyAuth
		expected http.Header
	}
	tests := testy.NewTable()
	tests.Add("no secret", tst{
		auth: &ProxyAuth{
			Username: "bob",
			Roles:    []string{"users", "admins"},
		},
		expected: http.Header{
			"X-Auth-Couchdb-Username": {"bob"},
			"X-Auth-Couchdb-Roles":    {"users,admins"},
		},
	})
	tests.Add("with secret", tst{
		auth: &ProxyAuth{
			Username: "bob",
			Secret:   "abc123",
			Roles:    []string{"users"},
		},
		expected: http.Header{
			"X-Auth-Couchdb-Username": {"bob"},
			"X-Auth-Couchdb-Roles":    {"users"},
			"X-Auth-Couchdb-Token":    {"adedb8d002eb53a52faba80e82cb1fc6d57bca74"},
		},
	})
	tests.Add("renamed headers", tst{
		auth: &ProxyAuth{
			Username: "bob",
			Roles:    []string{"users"},
			Headers: http.Header{
				"X-Auth-Couchdb-Username": {"X-User"},
				"X-Auth-Couchdb-Roles":    {"X-Roles"},
			},
		},
		expected: http.Header{
			"X-User":  {"bob"},
			"X-Roles": {"users"},
		},
	})

	tests.Run(t, func(t *testing.T, tt tst) {
		var got http.Header
		c := newCustomClient("", func(req *http.Request) (*http.Response, error) {
			got = http.Header{}
			for k, v := range req.Header {
				if k == "X-Auth-Couchdb-Username" || k == "X-Auth-Couchdb-Roles" || k == "X-Auth-Couchdb-Token" ||
					k == "X-User" || k == "X-Roles" {
					got[k] = v
				}
			}
			return &http.Response{StatusCode: 200, Body: Body("{}")}, nil
		})
		if err := c.Auth(tt.auth); err != nil {
			t.Fatal(err)
		}
		if _, err := c.DoError(context.Background(), "GET", "/", nil); err != nil {
			t.Fatal(err)
		}
		if d := testy.DiffInterface(tt.expected, got); d != nil {
			t.Error(d)
		}
	})
}
