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
	"io"
	"net/http"
	"net/url"
)

// Options are optional parameters which may be sent with a request. Requests
// always carry JSON Accept and Content-Type headers.
type Options struct {
	// GetBody returns the request body. It is called once per attempt, so
	// the body can be replayed on redirects.
	GetBody func() (io.ReadCloser, error)

	// Query is appended to the existing url, if present. If the passed url
	// already contains query parameters, the values in Query are appended.
	// No merging takes place.
	Query url.Values

	// Header holds additional headers to be set on the request. Accept and
	// Content-Type cannot be overridden.
	Header http.Header
}
