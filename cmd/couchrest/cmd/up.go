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
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/magengit/couchrest/bootstrap"
	"github.com/magengit/couchrest/cmd/couchrest/errors"
)

type up struct {
	*root
	container bootstrap.Config
	wait      time.Duration
}

func upCmd(r *root) *cobra.Command {
	c := &up{
		root:      r,
		container: bootstrap.DefaultConfig(),
	}
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start a local CouchDB server",
		Long: `Start a CouchDB server in a Docker container, pulling the image if needed,
and wait until it accepts requests. A container which is already running is
reused. One which has stopped is replaced.`,
		Args: cobra.NoArgs,
		RunE: c.RunE,
	}
	f := cmd.Flags()
	f.StringVar(&c.container.Image, "image", c.container.Image, "Docker image")
	f.StringVar(&c.container.Tag, "tag", c.container.Tag, "Docker image tag")
	f.StringVar(&c.container.Name, "name", c.container.Name, "Container name")
	f.IntVar(&c.container.HostPort, "port", c.container.HostPort, "Host port to bind")
	f.StringVar(&c.container.User, "admin-user", c.container.User, "Server admin to create on first start")
	f.StringVar(&c.container.Password, "admin-password", c.container.Password, "Password for --admin-user")
	f.StringArrayVarP(&c.container.Env, "env", "e", nil, "Additional container environment, as KEY=value. May be repeated.")
	f.DurationVar(&c.wait, "wait", time.Minute, "How long to wait for the server to accept requests")
	return cmd
}

type upResult struct {
	Container string `json:"container"`
	URL       string `json:"url"`
}

func (c *up) RunE(cmd *cobra.Command, _ []string) error {
	if err := c.container.Validate(); err != nil {
		return errors.Code(errors.ErrUsage, err)
	}
	api, err := c.newDocker()
	if err != nil {
		return errors.Code(errors.ErrUnavailable, err)
	}
	dsn, err := bootstrap.Up(cmd.Context(), api, c.container, c.wait, c.log)
	if err != nil {
		return errors.Code(errors.ErrUnavailable, err)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return errors.Code(errors.ErrUsage, err)
	}
	return c.output(cmd.OutOrStdout(), upResult{
		Container: c.container.Name,
		URL:       u.Redacted(),
	})
}
