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
)

// BasicAuth sends the same name and password with every request, in the
// Authorization header.
type BasicAuth struct {
	Username string
	Password string

	next http.RoundTripper
}

var _ Authenticator = &BasicAuth{}

// RoundTrip adds the credentials to req and passes it on.
func (a *BasicAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(a.Username, a.Password)
	next := a.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}

// Authenticate installs a as c's transport.
func (a *BasicAuth) Authenticate(c *Client) error {
	a.next = wrapTransport(c, a)
	return nil
}
