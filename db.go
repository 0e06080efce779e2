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
	"net/http"
	"strings"

	"github.com/magengit/couchrest/chttp"
)

// CreateDB creates the database dbName. If overwrite is true, any existing
// database of that name is destroyed first.
//
// created is true if the server created the database, and false if it
// already existed. Both are successful outcomes.
func (c *Client) CreateDB(ctx context.Context, dbName string, overwrite bool) (created bool, err error) {
	if dbName == "" {
		return false, missingArg("dbName")
	}
	if overwrite {
		if err := c.DestroyDB(ctx, dbName); err != nil {
			c.log.Debugf("couchrest: overwrite %s: %s", dbName, err)
		}
	}
	res, err := c.Do(ctx, http.MethodPut, dbPath(dbName), &chttp.Options{
		GetBody: chttp.BodyEncoder("{}"),
	})
	if err != nil {
		return false, wrapError(err)
	}
	switch res.StatusCode {
	case http.StatusCreated:
		return true, nil
	case http.StatusPreconditionFailed:
		c.log.Debugf("couchrest: database %s already exists", dbName)
		return false, nil
	}
	c.log.Errorf("couchrest: creating database %s failed with status %d", dbName, res.StatusCode)
	return false, responseError(res)
}

// DestroyDB deletes the database dbName and all of its documents.
func (c *Client) DestroyDB(ctx context.Context, dbName string) error {
	if dbName == "" {
		return missingArg("dbName")
	}
	res, err := c.Do(ctx, http.MethodDelete, dbPath(dbName), nil)
	if err != nil {
		return wrapError(err)
	}
	if !res.OK() {
		return responseError(res)
	}
	return nil
}

// DBExists returns true if the database dbName exists.
func (c *Client) DBExists(ctx context.Context, dbName string) (bool, error) {
	if dbName == "" {
		return false, missingArg("dbName")
	}
	_, err := c.DoError(ctx, http.MethodHead, dbPath(dbName), nil)
	if StatusCode(err) == http.StatusNotFound {
		return false, nil
	}
	return err == nil, wrapError(err)
}

// AllDBs returns the names of all databases on the server.
func (c *Client) AllDBs(ctx context.Context) ([]string, error) {
	var allDBs []string
	res, err := c.DoJSON(ctx, http.MethodGet, "/_all_dbs", nil, &allDBs)
	if err != nil {
		if res != nil && res.StatusCode < http.StatusBadRequest {
			return nil, malformed(err)
		}
		return nil, wrapError(err)
	}
	return allDBs, nil
}

// Ping queries the /_up endpoint, and returns true if there are no errors, or
// if a 400 (Bad Request) is returned, and the Server: header indicates a server
// version prior to 2.x.
func (c *Client) Ping(ctx context.Context) bool {
	resp, err := c.DoError(ctx, http.MethodHead, "/_up", nil)
	if StatusCode(err) == http.StatusBadRequest {
		return strings.HasPrefix(resp.Header.Get("Server"), "CouchDB/1.")
	}
	return err == nil
}
