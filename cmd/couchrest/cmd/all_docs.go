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
	"github.com/spf13/cobra"

	"github.com/magengit/couchrest"
)

type allDocs struct {
	*root
	includeDocs bool
	limit       int
}

func allDocsCmd(r *root) *cobra.Command {
	c := &allDocs{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "all-docs DB",
		Short: "List the documents in a database",
		Long:  "List the documents in a database. If the server drops the connection part way through, the documents received so far are output.",
		Args:  cobra.ExactArgs(1),
		RunE:  c.RunE,
	}
	f := cmd.Flags()
	f.BoolVar(&c.includeDocs, "include-docs", false, "Include the full document in each row")
	f.IntVar(&c.limit, "limit", 0, "Return at most this many rows")
	return cmd
}

func (c *allDocs) RunE(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	opts := map[string]interface{}{}
	if c.includeDocs {
		opts[couchrest.OptionIncludeDocs] = true
	}
	if cmd.Flags().Changed("limit") {
		opts[couchrest.OptionLimit] = c.limit
	}
	docs, err := client.AllDocs(cmd.Context(), args[0], opts)
	if err != nil {
		return err
	}
	return c.output(cmd.OutOrStdout(), docs)
}
