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

package cmd

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/magengit/couchrest/cmd/couchrest/errors"
)

// output writes v to w in the configured format.
func (r *root) output(w io.Writer, v interface{}) error {
	if r.conf.Output == "yaml" {
		return errors.Code(errors.ErrIO, writeYAML(w, v))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Code(errors.ErrIO, enc.Encode(v))
}

// writeYAML encodes v as YAML. v is first passed through JSON, so that the
// field names follow the json struct tags.
func writeYAML(w io.Writer, v interface{}) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var obj interface{}
	if err := json.Unmarshal(buf, &obj); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2) // nolint:gomnd
	if err := enc.Encode(obj); err != nil {
		return err
	}
	return enc.Close()
}
