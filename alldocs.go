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
	"net/http"

	"github.com/magengit/couchrest/chttp"
)

// AllDocsRows requests dbName's _all_docs endpoint, and returns the records
// as they are streamed. opts are sent as query parameters. The response must
// use chunked transfer encoding; any other response fails with
// KindUnsupportedResponse.
func (c *Client) AllDocsRows(ctx context.Context, dbName string, opts map[string]interface{}) (*Rows, error) {
	if dbName == "" {
		return nil, missingArg("dbName")
	}
	query, err := optionsToParams(opts)
	if err != nil {
		return nil, err
	}
	res, err := c.DoReq(ctx, http.MethodGet, dbPath(dbName)+"/_all_docs", &chttp.Options{
		Query: query,
	})
	if err != nil {
		return nil, wrapError(err)
	}
	if err := chttp.ResponseError(res); err != nil {
		c.log.Errorf("couchrest: listing %s: %s", dbName, err)
		return nil, wrapError(err)
	}
	if !chttp.Chunked(res) {
		chttp.CloseBody(res.Body)
		c.log.Errorf("couchrest: listing %s: response is not chunked", dbName)
		return nil, &Error{
			Kind:   KindUnsupportedResponse,
			Status: http.StatusBadGateway,
			Err:    errors.New("couchrest: bulk listing response does not use chunked encoding"),
		}
	}
	return newRows(ctx, dbName, res.Body, c.log), nil
}

// AllDocs returns every record of dbName's _all_docs listing, in order. If
// the connection is lost mid-stream, the records read so far are returned
// without an error.
func (c *Client) AllDocs(ctx context.Context, dbName string, opts map[string]interface{}) ([]Document, error) {
	rows, err := c.AllDocsRows(ctx, dbName, opts)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint: errcheck
	docs := []Document{}
	for rows.Next() {
		docs = append(docs, rows.Doc())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
