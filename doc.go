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

/*
Package couchrest is a thin client for CouchDB's HTTP document API.

Documents

CreateDoc writes a document under an application-chosen name. With overwrite
set, the current revision is read first and sent along with the new body, so
the write replaces the stored document instead of failing with a conflict.
DeleteDoc always reads the current revision before deleting.

Bulk listing

AllDocs and AllDocsRows read a database's _all_docs endpoint. The response
must use chunked transfer encoding. Records are reassembled at newline
boundaries as the stream arrives, regardless of how the transport splits the
body. A connection lost mid-stream ends the listing early without an error.

Options

Options passed to AllDocs are sent as URL query parameters. Values of the
following types will be converted to their appropriate string representation
when URL-encoded:

 - bool
 - string
 - []string
 - int, uint, uint8, uint16, uint32, uint64, int8, int16, int32, int64

Passing any other type will return an error.

Errors

All methods return errors of type *Error, which carry a Kind and an HTTP
status. Use KindOf and StatusCode to inspect them.

Authentication

For most uses, include credentials in the connection DSN. This will use Cookie
authentication. To use one of the explicit authentication mechanisms, omit
credentials from the DSN and call Authenticate:

    client, _ := couchrest.New("http://localhost:5984/")
    err := client.Authenticate(couchrest.BasicAuth("bob", "abc123"))
*/
package couchrest
