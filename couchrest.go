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
	"fmt"
	"net/http"
	"net/url"

	"github.com/magengit/couchrest/chttp"
	"github.com/magengit/couchrest/log"
)

// Client is a connection to a CouchDB server. It is safe for concurrent use.
type Client struct {
	*chttp.Client

	log log.Logger
}

type options struct {
	httpClient *http.Client
	logger     log.Logger
	userAgents []string
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger which receives diagnostics. The default logs
// through glog.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHTTPClient sets the *http.Client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithUserAgent appends product tokens to the User-Agent header.
func WithUserAgent(ua ...string) Option {
	return func(o *options) {
		o.userAgents = append(o.userAgents, ua...)
	}
}

// New returns a client for the CouchDB server at dsn. If credentials are
// included in the URL, they are used to authenticate with CookieAuth. To use
// a different auth mechanism, do not specify credentials here, and instead
// call Authenticate.
func New(dsn string, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	chttpClient, err := chttp.New(o.httpClient, dsn)
	if err != nil {
		return nil, wrapError(err)
	}
	chttpClient.UserAgents = append([]string{
		fmt.Sprintf("couchrest/%s", Version),
	}, o.userAgents...)
	logger := o.logger
	if logger == nil {
		logger = log.NewGlog()
	}
	return &Client{
		Client: chttpClient,
		log:    logger,
	}, nil
}

// Authenticate installs a, which is typically one of *chttp.BasicAuth,
// *chttp.CookieAuth or *chttp.ProxyAuth.
func (c *Client) Authenticate(a chttp.Authenticator) error {
	return c.Auth(a)
}

// BasicAuth returns an authenticator which uses HTTP Basic Auth.
func BasicAuth(user, password string) chttp.Authenticator {
	return &chttp.BasicAuth{Username: user, Password: password}
}

// CookieAuth returns an authenticator which uses CouchDB session cookies.
func CookieAuth(user, password string) chttp.Authenticator {
	return &chttp.CookieAuth{Username: user, Password: password}
}

// ProxyAuth returns an authenticator which uses CouchDB proxy
// authentication. If secret is empty, no token is sent.
func ProxyAuth(user, secret string, roles []string) chttp.Authenticator {
	return &chttp.ProxyAuth{Username: user, Secret: secret, Roles: roles}
}

func dbPath(dbName string) string {
	return url.PathEscape(dbName)
}

func docPath(dbName, docID string) string {
	return dbPath(dbName) + "/" + chttp.EncodeDocID(docID)
}
