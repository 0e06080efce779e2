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
)

type deleteDoc struct {
	*root
}

func deleteCmd(r *root) *cobra.Command {
	c := &deleteDoc{
		root: r,
	}
	return &cobra.Command{
		Use:   "delete DB DOC",
		Short: "Delete a document",
		Long:  "Delete the current revision of a document",
		Args:  cobra.ExactArgs(2), // nolint:gomnd
		RunE:  c.RunE,
	}
}

func (c *deleteDoc) RunE(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	result, err := client.DeleteDoc(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return c.output(cmd.OutOrStdout(), result)
}
