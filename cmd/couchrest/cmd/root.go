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

// Package cmd implements the couchrest command line tool.
package cmd

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/spf13/cobra"

	"github.com/magengit/couchrest"
	"github.com/magengit/couchrest/bootstrap"
	"github.com/magengit/couchrest/chttp"
	"github.com/magengit/couchrest/cmd/couchrest/errors"
	"github.com/magengit/couchrest/log"
)

type root struct {
	confFile string
	debug    bool
	verbose  bool
	log      log.Logger
	conf     *config
	cmd      *cobra.Command

	retryCount int
	retryDelay time.Duration

	trace *chttp.ClientTrace

	// resolveHome is used to resolve ~ in the default config file path
	resolveHome func(string) string

	newDocker func() (bootstrap.DockerAPI, error)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) {
	lg := log.New()
	root := rootCmd(lg)
	os.Exit(root.execute(ctx))
}

func (r *root) execute(ctx context.Context) int {
	// Command output goes to stdout; all diagnostics go to stderr.
	r.log.SetOut(r.cmd.ErrOrStderr())
	r.log.SetErr(r.cmd.ErrOrStderr())
	ctx = chttp.WithClientTrace(ctx, r.clientTrace())
	err := r.cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	r.log.Errorf("Error: %s", err)
	return extractExitCode(err)
}

func extractExitCode(err error) int {
	if code := errors.InspectErrorCode(err); code != 0 {
		return code
	}

	// Any unhandled errors are assumed to be from Cobra, so return a "failed
	// to initialize" error
	return errors.ErrUsage
}

func resolveHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	usr, _ := user.Current()
	return filepath.Join(usr.HomeDir, path[2:])
}

func newDockerClient() (bootstrap.DockerAPI, error) {
	c, err := bootstrap.NewDockerClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func rootCmd(lg log.Logger) *root {
	r := &root{
		log:         lg,
		resolveHome: resolveHome,
		newDocker:   newDockerClient,
	}
	r.cmd = &cobra.Command{
		Use:               "couchrest",
		Short:             "couchrest talks to a CouchDB server",
		Long:              `Create and delete databases, read and write documents, and list database contents on a CouchDB server.`,
		PersistentPreRunE: r.init,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	pf := r.cmd.PersistentFlags()
	pf.StringVar(&r.confFile, "config", "~/.couchrest.yaml", "Path to config file to use for CLI requests")
	pf.BoolVar(&r.debug, "debug", false, "Enable debug output")
	pf.BoolVarP(&r.verbose, "verbose", "v", false, "Output bi-directional network traffic")
	pf.IntVar(&r.retryCount, "retry", 0, "In case of transient error, retry up to this many times. A negative value retries forever.")
	pf.DurationVar(&r.retryDelay, "retry-delay", 0, "Delay between retry attempts. Disables the default exponential backoff algorithm.")

	// Settings which may also come from the config file or environment.
	pf.String(keyURL, "http://localhost:5984/", "CouchDB server URL")
	pf.String(keyUser, "", "Username for HTTP basic auth")
	pf.String(keyPassword, "", "Password for HTTP basic auth")
	pf.StringP(keyOutput, "o", "json", "Output format, json or yaml")
	pf.Duration(keyTimeout, 30*time.Second, "The time limit for each request")

	r.cmd.AddCommand(upCmd(r))
	r.cmd.AddCommand(pingCmd(r))
	r.cmd.AddCommand(createDBCmd(r))
	r.cmd.AddCommand(deleteDBCmd(r))
	r.cmd.AddCommand(listDBsCmd(r))
	r.cmd.AddCommand(dbStatsCmd(r))
	r.cmd.AddCommand(putCmd(r))
	r.cmd.AddCommand(getCmd(r))
	r.cmd.AddCommand(deleteCmd(r))
	r.cmd.AddCommand(allDocsCmd(r))

	return r
}

func (r *root) init(*cobra.Command, []string) error {
	r.log.SetDebug(r.debug)

	r.log.Debug("Debug mode enabled")
	r.setTrace()

	conf, err := r.readConfig()
	if err != nil {
		return err
	}
	r.conf = conf
	return nil
}

// client returns a couchrest client for the configured server. Credentials
// set in the configuration are sent with HTTP basic auth, and take the place
// of any embedded in the URL.
func (r *root) client() (*couchrest.Client, error) {
	dsn := r.conf.URL
	if r.conf.User != "" {
		u, err := url.Parse(dsn)
		if err != nil {
			return nil, errors.Code(errors.ErrUsage, err)
		}
		u.User = nil
		dsn = u.String()
	}
	client, err := couchrest.New(dsn,
		couchrest.WithLogger(r.log),
		couchrest.WithHTTPClient(&http.Client{Timeout: r.conf.Timeout}),
		couchrest.WithUserAgent("couchrest-cli/"+couchrest.Version),
	)
	if err != nil {
		return nil, errors.Code(errors.ErrUsage, err)
	}
	if r.conf.User != "" {
		if err := client.Authenticate(couchrest.BasicAuth(r.conf.User, r.conf.Password)); err != nil {
			return nil, errors.Code(errors.ErrUsage, err)
		}
	}
	r.log.Debugf("Using server %s", redact(dsn))
	return client, nil
}

func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return dsn
	}
	return u.Redacted()
}

// retry calls fn until it succeeds, returns a permanent error, or the
// configured number of retries is exhausted.
func (r *root) retry(ctx context.Context, fn func() error) error {
	if r.retryCount == 0 {
		return fn()
	}
	var bo backoff.BackOff
	switch {
	case !r.cmd.PersistentFlags().Changed("retry-delay"):
		bo = backoff.NewExponentialBackOff()
	case r.retryDelay == 0:
		bo = &backoff.ZeroBackOff{}
	default:
		bo = backoff.NewConstantBackOff(r.retryDelay)
	}
	if r.retryCount > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(r.retryCount))
	}
	notify := func(err error, next time.Duration) {
		r.log.Infof("Warning: Transient problem: %s. Will retry in %s.", err, next)
	}
	return backoff.RetryNotify(fn, backoff.WithContext(bo, ctx), notify)
}
