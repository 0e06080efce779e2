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
	"crypto/hmac"
	"crypto/sha1" // nolint:gosec
	"encoding/hex"
	"net/http"
	"strings"
)

// ProxyAuth provides CouchDB proxy authentication, where a trusted proxy
// asserts the user's name and roles through request headers.
type ProxyAuth struct {
	Username string
	Secret   string
	Roles    []string
	// Headers optionally renames the X-Auth-CouchDB-* headers.
	Headers http.Header

	next http.RoundTripper
}

var _ Authenticator = &ProxyAuth{}

func (a *ProxyAuth) header(header string) string {
	if h := a.Headers.Get(header); h != "" {
		return http.CanonicalHeaderKey(h)
	}
	return header
}

// RoundTrip sets the proxy headers on req and passes it on. The token header
// is only sent when a Secret is configured.
func (a *ProxyAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	if a.Secret != "" {
		// https://docs.couchdb.org/en/stable/config/auth.html#couch_httpd_auth/x_auth_token
		h := hmac.New(sha1.New, []byte(a.Secret))
		_, _ = h.Write([]byte(a.Username))
		req.Header.Set(a.header("X-Auth-CouchDB-Token"), hex.EncodeToString(h.Sum(nil)))
	}

	req.Header.Set(a.header("X-Auth-CouchDB-UserName"), a.Username)
	req.Header.Set(a.header("X-Auth-CouchDB-Roles"), strings.Join(a.Roles, ","))

	return a.next.RoundTrip(req)
}

// Authenticate installs a as c's transport.
func (a *ProxyAuth) Authenticate(c *Client) error {
	a.next = wrapTransport(c, a)
	return nil
}
