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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

// DBStats holds the statistics CouchDB reports for a database.
type DBStats struct {
	Name         string `json:"db_name"`
	DocCount     int64  `json:"doc_count"`
	DeletedCount int64  `json:"doc_del_count"`
	UpdateSeq    string `json:"update_seq"`
	DiskSize     int64  `json:"disk_size,omitempty"`
	ActiveSize   int64  `json:"data_size,omitempty"`
	ExternalSize int64  `json:"external_size,omitempty"`
}

// DBStats returns the statistics for dbName.
func (c *Client) DBStats(ctx context.Context, dbName string) (*DBStats, error) {
	if dbName == "" {
		return nil, missingArg("dbName")
	}
	res, err := c.Do(ctx, http.MethodGet, dbPath(dbName), nil)
	if err != nil {
		return nil, wrapError(err)
	}
	if !res.OK() {
		return nil, responseError(res)
	}
	result := struct {
		DBStats
		Sizes struct {
			File     int64 `json:"file"`
			External int64 `json:"external"`
			Active   int64 `json:"active"`
		} `json:"sizes"`
		UpdateSeq json.RawMessage `json:"update_seq"`
	}{}
	if err := res.Decode(&result); err != nil {
		return nil, malformed(err)
	}
	stats := &result.DBStats
	// CouchDB 2.0 moved the sizes into a sub-object.
	if result.Sizes.File > 0 {
		stats.DiskSize = result.Sizes.File
	}
	if result.Sizes.External > 0 {
		stats.ExternalSize = result.Sizes.External
	}
	if result.Sizes.Active > 0 {
		stats.ActiveSize = result.Sizes.Active
	}
	// update_seq is a number before 2.0, and an opaque string after.
	stats.UpdateSeq = string(bytes.Trim(result.UpdateSeq, `"`))
	return stats, nil
}
