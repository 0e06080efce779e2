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
	"net/http"
	"net/http/cookiejar"

	"golang.org/x/net/publicsuffix"
)

// SessionCookieName is the name of the CouchDB session cookie.
const SessionCookieName = "AuthSession"

// Authenticator configures a Client to authenticate its requests, usually by
// wrapping its transport.
type Authenticator interface {
	Authenticate(*Client) error
}

// wrapTransport makes rt the transport of c, and returns the transport rt
// should delegate to.
func wrapTransport(c *Client, rt http.RoundTripper) http.RoundTripper {
	next := c.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	c.Transport = rt
	return next
}

// ensureJar gives c a cookie jar, unless it already has one.
func ensureJar(c *Client) {
	if c.Jar != nil {
		return
	}
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	c.Jar = jar
}
