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

//go:build !js

// Package test holds integration tests which run against a real CouchDB
// server in a Docker container.
package test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magengit/couchrest/bootstrap"
)

// Image is the CouchDB image the integration tests run against.
const Image = "couchdb:latest"

// StartCouchDB starts a CouchDB container, and returns its DSN, including
// the admin credentials. The test is skipped unless USETC is set. The
// container is terminated when the test ends.
func StartCouchDB(t *testing.T) string { //nolint:thelper // Not a helper
	if os.Getenv("USETC") == "" {
		t.Skip("USETC not set, skipping testcontainers")
	}
	cfg := bootstrap.DefaultConfig()
	req := testcontainers.ContainerRequest{
		Image:        Image,
		ExposedPorts: []string{string(bootstrap.CouchPort)},
		WaitingFor:   wait.ForHTTP("/").WithPort(bootstrap.CouchPort).WithStartupTimeout(120 * time.Second),
		Env: map[string]string{
			"COUCHDB_USER":     cfg.User,
			"COUCHDB_PASSWORD": cfg.Password,
		},
	}
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("testcontainers: terminate: %s", err)
		}
	})
	ip, err := container.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	mappedPort, err := container.MappedPort(ctx, bootstrap.CouchPort)
	if err != nil {
		t.Fatal(err)
	}
	dsn := fmt.Sprintf("http://%s:%s@%s:%s/", cfg.User, cfg.Password, ip, mappedPort.Port())
	t.Logf("testcontainers: CouchDB started at %s:%s", ip, mappedPort.Port())
	return dsn
}
