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

// Version is the current version of this package.
const Version = "1.0.0"

// Option keys understood by AllDocs and AllDocsRows, in addition to any other
// _all_docs query parameter.
const (
	// OptionIncludeDocs includes the full document body in each row.
	OptionIncludeDocs = "include_docs"

	// OptionLimit limits the number of rows returned.
	OptionLimit = "limit"
)
