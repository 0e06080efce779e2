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
	"time"
)

// CookieAuth logs in through POST /_session and sends the AuthSession cookie
// the server hands back. A new session is opened when the cookie is missing
// or about to expire, and after the server answers 401.
//
// A CookieAuth holds session state, and must not be shared between clients.
type CookieAuth struct {
	Username string `json:"name"`
	Password string `json:"password"`

	client *Client
	next   http.RoundTripper
	// expires is nil until a session has been opened. A zero time means the
	// server sent a session cookie without an expiry.
	expires *time.Time
}

var _ Authenticator = &CookieAuth{}

// Authenticate installs a as c's transport, and gives c a cookie jar if it
// has none. No request is made until the first call.
func (a *CookieAuth) Authenticate(c *Client) error {
	a.client = c
	ensureJar(c)
	a.next = wrapTransport(c, a)
	return nil
}

// Cookie returns the current session cookie, or nil.
func (a *CookieAuth) Cookie() *http.Cookie {
	if a.client == nil {
		return nil
	}
	for _, cookie := range a.client.Jar.Cookies(a.client.dsn) {
		if cookie.Name == SessionCookieName {
			return cookie
		}
	}
	return nil
}

type loginKey struct{}

func loggingIn(ctx context.Context) bool {
	v, _ := ctx.Value(loginKey{}).(bool)
	return v
}

// RoundTrip opens a session if needed, then sends req. A 401 response
// discards the session cookie.
func (a *CookieAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := a.login(req); err != nil {
		return nil, err
	}
	res, err := a.next.RoundTrip(req)
	if err != nil || loggingIn(req.Context()) {
		return res, err
	}
	if res.StatusCode == http.StatusUnauthorized {
		a.dropSession()
	}
	return res, nil
}

func (a *CookieAuth) dropSession() {
	cookie := a.Cookie()
	if cookie == nil {
		return
	}
	cookie.Expires = time.Now().AddDate(0, 0, -1)
	a.client.Jar.SetCookies(a.client.dsn, []*http.Cookie{cookie})
	a.client.authMU.Lock()
	a.expires = nil
	a.client.authMU.Unlock()
}

// needsLogin reports whether req lacks a usable session cookie.
func (a *CookieAuth) needsLogin(req *http.Request) bool {
	if _, err := req.Cookie(SessionCookieName); err == nil {
		return false
	}
	switch {
	case a.expires == nil:
		return true
	case a.expires.IsZero():
		return false
	}
	return a.expires.Before(time.Now())
}

func (a *CookieAuth) login(req *http.Request) error {
	ctx := req.Context()
	if loggingIn(ctx) {
		return nil
	}
	a.client.authMU.Lock()
	defer a.client.authMU.Unlock()
	if !a.needsLogin(req) {
		return nil
	}
	ctx = context.WithValue(ctx, loginKey{}, true)
	res, err := a.client.DoError(ctx, http.MethodPost, "/_session", &Options{
		GetBody: BodyEncoder(a),
	})
	if err != nil {
		return err
	}
	for _, cookie := range res.Cookies() {
		if cookie.Name != SessionCookieName {
			continue
		}
		expires := cookie.Expires
		if !expires.IsZero() {
			// Renew a minute early.
			expires = expires.Add(-time.Minute)
		}
		a.expires = &expires
		break
	}

	cookies := req.Cookies()
	req.Header.Del("Cookie")
	for _, cookie := range cookies {
		if cookie.Name != SessionCookieName {
			req.AddCookie(cookie)
		}
	}
	if c := a.Cookie(); c != nil {
		req.AddCookie(c)
	}
	return nil
}
