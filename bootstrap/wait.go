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

package bootstrap

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"github.com/magengit/couchrest/chttp"
	"github.com/magengit/couchrest/log"
)

var initialInterval = 250 * time.Millisecond

// WaitReady polls the server at dsn until it answers on /_up, or until
// timeout elapses. Failed attempts are retried with exponential backoff.
// A server which answers with a 4xx status is considered ready. A nil logger
// discards all logs.
func WaitReady(ctx context.Context, dsn string, timeout time.Duration, logger log.Logger) error {
	if logger == nil {
		logger = log.NewNil()
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return errors.Wrap(err, "wait for CouchDB")
	}
	// /_up needs no credentials.
	u.User = nil
	c, err := chttp.New(&http.Client{Timeout: timeout}, u.String())
	if err != nil {
		return errors.Wrap(err, "wait for CouchDB")
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	policy.MaxElapsedTime = timeout

	attempt := func() error {
		res, err := c.DoReq(ctx, http.MethodGet, "/_up", nil)
		if err != nil {
			return err
		}
		chttp.CloseBody(res.Body)
		if res.StatusCode >= http.StatusInternalServerError {
			return errors.Errorf("/_up returned %s", res.Status)
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		logger.Debugf("bootstrap: CouchDB not ready (%s), retrying in %s", err, next)
	}
	if err := backoff.RetryNotify(attempt, backoff.WithContext(policy, ctx), notify); err != nil {
		return errors.Wrapf(err, "CouchDB at %s not ready after %s", u, timeout)
	}
	logger.Infof("bootstrap: CouchDB is ready")
	return nil
}

// Up ensures the container described by cfg is running, and waits up to
// timeout for CouchDB to accept requests. It returns the server's URL.
func Up(ctx context.Context, api DockerAPI, cfg Config, timeout time.Duration, logger log.Logger) (string, error) {
	if _, err := EnsureCouchDB(ctx, api, cfg, logger); err != nil {
		return "", err
	}
	dsn := cfg.URL()
	return dsn, WaitReady(ctx, dsn, timeout, logger)
}
