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
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/magengit/couchrest/chttp"
)

// Document is a CouchDB document.
type Document map[string]interface{}

// ID returns the document's _id, or an empty string.
func (d Document) ID() string {
	id, _ := d["_id"].(string)
	return id
}

// Rev returns the document's _rev, or an empty string.
func (d Document) Rev() string {
	rev, _ := d["_rev"].(string)
	return rev
}

// Result is the server's acknowledgement of a document write.
type Result struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

func decodeResult(res *chttp.Response) (*Result, error) {
	result := &Result{}
	if err := res.Decode(result); err != nil {
		return nil, malformed(err)
	}
	return result, nil
}

// CreateDoc stores doc in dbName under docID. doc may be a JSON string,
// []byte, json.RawMessage, or any value which marshals to a JSON object.
//
// If overwrite is false, the document is written as-is, and the call fails
// with KindConflict if the document already exists. If overwrite is true, the
// current document is read first, and its revision is sent as the first
// member of the new body, replacing any _rev doc already carries. A missing
// document is created without a revision.
func (c *Client) CreateDoc(ctx context.Context, dbName, docID string, doc interface{}, overwrite bool) (*Result, error) {
	if dbName == "" {
		return nil, missingArg("dbName")
	}
	if docID == "" {
		return nil, missingArg("docID")
	}
	body, err := toJSON(doc)
	if err != nil {
		return nil, err
	}
	fields, err := objectFields(body)
	if err != nil {
		return nil, err
	}
	if overwrite {
		res, rev, err := c.fetchRev(ctx, dbName, docID)
		if err != nil {
			return nil, err
		}
		switch res.StatusCode {
		case http.StatusOK:
			body = injectRev(fields, rev)
		case http.StatusNotFound:
			c.log.Infof("couchrest: document %s/%s does not exist, creating it", dbName, docID)
		case http.StatusUnauthorized:
			c.log.Errorf("couchrest: not authorized to read %s/%s", dbName, docID)
			return nil, responseError(res)
		default:
			c.log.Errorf("couchrest: reading %s/%s before overwrite: unexpected status %d", dbName, docID, res.StatusCode)
			return nil, unexpectedStatus(res)
		}
	}
	res, err := c.Do(ctx, http.MethodPut, docPath(dbName, docID), &chttp.Options{
		GetBody: chttp.BodyEncoder(json.RawMessage(body)),
	})
	if err != nil {
		return nil, wrapError(err)
	}
	if res.StatusCode != http.StatusCreated {
		c.log.Errorf("couchrest: writing %s/%s failed with status %d: %s", dbName, docID, res.StatusCode, body)
		return nil, responseError(res)
	}
	return decodeResult(res)
}

// GetDoc fetches the document docID from dbName.
func (c *Client) GetDoc(ctx context.Context, dbName, docID string) (Document, error) {
	if dbName == "" {
		return nil, missingArg("dbName")
	}
	if docID == "" {
		return nil, missingArg("docID")
	}
	res, err := c.Do(ctx, http.MethodGet, docPath(dbName, docID), nil)
	if err != nil {
		return nil, wrapError(err)
	}
	if res.StatusCode != http.StatusOK {
		c.log.Infof("couchrest: reading %s/%s: status %d", dbName, docID, res.StatusCode)
		return nil, responseError(res)
	}
	var doc Document
	if err := res.Decode(&doc); err != nil {
		c.log.Errorf("couchrest: reading %s/%s: %s", dbName, docID, err)
		return nil, malformed(err)
	}
	return doc, nil
}

// DeleteDoc deletes docID from dbName. The current revision is read first,
// and sent with the delete request.
func (c *Client) DeleteDoc(ctx context.Context, dbName, docID string) (*Result, error) {
	if dbName == "" {
		return nil, missingArg("dbName")
	}
	if docID == "" {
		return nil, missingArg("docID")
	}
	res, rev, err := c.fetchRev(ctx, dbName, docID)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		c.log.Errorf("couchrest: reading %s/%s before delete: status %d", dbName, docID, res.StatusCode)
		return nil, responseError(res)
	}
	res, err = c.Do(ctx, http.MethodDelete, docPath(dbName, docID), &chttp.Options{
		Query: url.Values{"rev": []string{rev}},
	})
	if err != nil {
		return nil, wrapError(err)
	}
	if res.StatusCode != http.StatusOK {
		c.log.Errorf("couchrest: deleting %s/%s rev %s failed with status %d", dbName, docID, rev, res.StatusCode)
		return nil, responseError(res)
	}
	return decodeResult(res)
}

// Rev returns the current revision of docID, using a HEAD request.
func (c *Client) Rev(ctx context.Context, dbName, docID string) (string, error) {
	if dbName == "" {
		return "", missingArg("dbName")
	}
	if docID == "" {
		return "", missingArg("docID")
	}
	res, err := c.DoError(ctx, http.MethodHead, docPath(dbName, docID), nil)
	if err != nil {
		return "", wrapError(err)
	}
	rev, err := chttp.GetRev(res)
	if err != nil {
		return "", malformed(err)
	}
	return rev, nil
}

// fetchRev reads docID and returns the response along with the document's
// revision. The revision is only extracted from a 200 response; other
// statuses are left for the caller to interpret.
func (c *Client) fetchRev(ctx context.Context, dbName, docID string) (*chttp.Response, string, error) {
	res, err := c.Do(ctx, http.MethodGet, docPath(dbName, docID), nil)
	if err != nil {
		return nil, "", wrapError(err)
	}
	if res.StatusCode != http.StatusOK {
		return res, "", nil
	}
	var doc struct {
		Rev string `json:"_rev"`
	}
	if res.JSON != nil {
		if err := json.Unmarshal(res.JSON, &doc); err != nil {
			return nil, "", malformed(err)
		}
	}
	if doc.Rev == "" {
		doc.Rev, _ = chttp.ETag(res.Response)
	}
	if doc.Rev == "" {
		return nil, "", malformed(errors.New("couchrest: no revision found for " + dbName + "/" + docID))
	}
	return res, doc.Rev, nil
}
