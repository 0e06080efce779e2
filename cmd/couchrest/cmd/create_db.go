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

type createDB struct {
	*root
	overwrite bool
}

func createDBCmd(r *root) *cobra.Command {
	c := &createDB{
		root: r,
	}
	cmd := &cobra.Command{
		Use:   "create-db DB",
		Short: "Create a database",
		Long:  "Create a database. An existing database is not an error, unless --overwrite is given, in which case it is destroyed and created again.",
		Args:  cobra.ExactArgs(1),
		RunE:  c.RunE,
	}
	cmd.Flags().BoolVar(&c.overwrite, "overwrite", false, "Destroy any existing database first")
	return cmd
}

func (c *createDB) RunE(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	created, err := client.CreateDB(cmd.Context(), args[0], c.overwrite)
	if err != nil {
		return err
	}
	return c.output(cmd.OutOrStdout(), map[string]interface{}{
		"ok":      true,
		"created": created,
	})
}
