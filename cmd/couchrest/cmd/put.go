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
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/magengit/couchrest/cmd/couchrest/errors"
)

type put struct {
	*root
	data      string
	file      string
	overwrite bool
}

func putCmd(r *root) *cobra.Command {
	c := &put{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "put DB [DOC]",
		Short: "Store a document",
		Long: `Store a document, given with --data or read from --file.

If DOC is omitted, the document's _id is used, or else a new UUID. With
--overwrite, the current revision is looked up first and replaced.`,
		Args: cobra.RangeArgs(1, 2), // nolint:gomnd
		RunE: c.RunE,
	}
	f := cmd.Flags()
	f.StringVarP(&c.data, "data", "d", "", "JSON document")
	f.StringVarP(&c.file, "file", "f", "", "Read the document from this JSON or YAML file. Use - for stdin.")
	f.BoolVar(&c.overwrite, "overwrite", false, "Replace the current revision of an existing document")
	return cmd
}

func (c *put) RunE(cmd *cobra.Command, args []string) error {
	doc, err := c.document(cmd.InOrStdin())
	if err != nil {
		return err
	}
	var docID string
	if len(args) > 1 {
		docID = args[1]
	} else {
		docID = documentID(doc)
		c.log.Debugf("Using document ID %q", docID)
	}
	client, err := c.client()
	if err != nil {
		return err
	}
	result, err := client.CreateDoc(cmd.Context(), args[0], docID, doc, c.overwrite)
	if err != nil {
		return err
	}
	return c.output(cmd.OutOrStdout(), result)
}

// document returns the JSON document given on the command line.
func (c *put) document(stdin io.Reader) (json.RawMessage, error) {
	switch {
	case c.data != "" && c.file != "":
		return nil, errors.Code(errors.ErrUsage, "--data and --file are mutually exclusive")
	case c.data != "":
		return parseJSON([]byte(c.data))
	case c.file == "":
		return nil, errors.Code(errors.ErrUsage, "no document provided, use --data or --file")
	}

	var r io.Reader = stdin
	if c.file != "-" {
		f, err := os.Open(c.file)
		if err != nil {
			return nil, errors.Code(errors.ErrNoInput, err)
		}
		defer f.Close() // nolint:errcheck
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Code(errors.ErrIO, err)
	}
	switch strings.ToLower(filepath.Ext(c.file)) {
	case ".yaml", ".yml":
		return yamlToJSON(data)
	}
	return parseJSON(data)
}

func parseJSON(data []byte) (json.RawMessage, error) {
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.Codef(errors.ErrData, "invalid JSON document: %s", err)
	}
	return json.RawMessage(data), nil
}

func yamlToJSON(data []byte) (json.RawMessage, error) {
	var obj map[string]interface{}
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return nil, errors.Codef(errors.ErrData, "invalid YAML document: %s", err)
	}
	doc, err := json.Marshal(obj)
	if err != nil {
		return nil, errors.Code(errors.ErrData, err)
	}
	return doc, nil
}

// documentID returns the _id member of doc, or a new random UUID.
func documentID(doc json.RawMessage) string {
	var id struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(doc, &id); err == nil && id.ID != "" {
		return id.ID
	}
	return uuid.NewString()
}
