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

type dbStats struct {
	*root
}

func dbStatsCmd(r *root) *cobra.Command {
	c := &dbStats{
		root: r,
	}
	return &cobra.Command{
		Use:   "db-stats DB",
		Short: "Describe a database",
		Long:  "Show a database's document counts, sizes and update sequence",
		Args:  cobra.ExactArgs(1),
		RunE:  c.RunE,
	}
}

func (c *dbStats) RunE(cmd *cobra.Command, args []string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	stats, err := client.DBStats(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return c.output(cmd.OutOrStdout(), stats)
}
