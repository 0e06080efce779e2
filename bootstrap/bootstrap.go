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

// Package bootstrap starts a local CouchDB server in a Docker container, and
// waits for it to accept requests.
package bootstrap

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/go-playground/validator/v10"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"

	"github.com/magengit/couchrest/log"
)

// CouchPort is the port CouchDB listens on inside the container.
const CouchPort nat.Port = "5984/tcp"

// Container states, as reported by the Docker daemon.
const (
	StateCreated = "created"
	StateRunning = "running"
	StateExited  = "exited"
)

// DockerAPI is the subset of the Docker client used to manage the container.
// *client.Client satisfies it.
type DockerAPI interface {
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
}

var _ DockerAPI = (*client.Client)(nil)

// NewDockerClient returns a Docker client configured from the environment
// (DOCKER_HOST and friends), negotiating the API version with the daemon.
func NewDockerClient() (*client.Client, error) {
	c, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	return c, errors.Wrap(err, "docker client")
}

// Config describes the CouchDB container.
type Config struct {
	Image    string `validate:"required"`
	Tag      string `validate:"required"`
	Name     string `validate:"required"`
	HostPort int    `validate:"min=1,max=65535"`

	// User and Password, if set, create a server admin on first start.
	User     string `validate:"required_with=Password"`
	Password string

	// Env holds any additional container environment, as KEY=value pairs.
	Env []string
}

// Environment variables overriding the default server admin.
const (
	EnvAdminUser     = "COUCHREST_ADMIN_USER"
	EnvAdminPassword = "COUCHREST_ADMIN_PASSWORD"
)

// Development-only server admin, used when the environment names none.
const (
	defaultAdminUser     = "admin"
	defaultAdminPassword = "abc123"
)

// DefaultConfig returns the standard configuration: the latest couchdb
// image, in a container named appguard_couch, bound to port 5984.
//
// The server admin is taken from COUCHREST_ADMIN_USER and
// COUCHREST_ADMIN_PASSWORD. Without them it is admin/abc123, a well-known
// credential suitable only for local development.
func DefaultConfig() Config {
	return Config{
		Image:    "couchdb",
		Tag:      "latest",
		Name:     "appguard_couch",
		HostPort: 5984,
		User:     envOr(EnvAdminUser, defaultAdminUser),
		Password: envOr(EnvAdminPassword, defaultAdminPassword),
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

var validate = validator.New()

// Validate checks that cfg is usable.
func (cfg Config) Validate() error {
	return errors.Wrap(validate.Struct(cfg), "invalid container config")
}

// Ref returns the image reference, image:tag.
func (cfg Config) Ref() string {
	return cfg.Image + ":" + cfg.Tag
}

// URL returns the address of the server on the local host, including the
// admin credentials if set.
func (cfg Config) URL() string {
	u := &url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort("localhost", strconv.Itoa(cfg.HostPort)),
		Path:   "/",
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String()
}

func (cfg Config) env() []string {
	env := make([]string, 0, len(cfg.Env)+2) // nolint:gomnd
	if cfg.User != "" {
		env = append(env, "COUCHDB_USER="+cfg.User, "COUCHDB_PASSWORD="+cfg.Password)
	}
	return append(env, cfg.Env...)
}

// EnsureCouchDB makes sure the container described by cfg is running. The
// image is pulled if it is not present locally. A container left in the
// exited or created state is removed and started afresh. The container is
// created if it does not exist.
//
// The returned container is running, or freshly created without an error.
// A nil logger discards all logs.
func EnsureCouchDB(ctx context.Context, api DockerAPI, cfg Config, logger log.Logger) (types.ContainerJSON, error) {
	if logger == nil {
		logger = log.NewNil()
	}
	if err := cfg.Validate(); err != nil {
		return types.ContainerJSON{}, err
	}
	if err := ensureImage(ctx, api, cfg, logger); err != nil {
		return types.ContainerJSON{}, err
	}
	ctr, found, err := inspect(ctx, api, cfg.Name)
	if err != nil {
		return types.ContainerJSON{}, err
	}
	if found {
		switch status := containerState(ctr).Status; status {
		case StateExited, StateCreated:
			logger.Infof("bootstrap: container %s is %s, removing it", cfg.Name, status)
			if err := api.ContainerRemove(ctx, cfg.Name, container.RemoveOptions{Force: true}); err != nil {
				return types.ContainerJSON{}, errors.Wrapf(err, "remove container %s", cfg.Name)
			}
			found = false
		default:
			logger.Debugf("bootstrap: container %s is %s", cfg.Name, status)
		}
	}
	if !found {
		logger.Infof("bootstrap: container %s not found or not running, starting it", cfg.Name)
		ctr, err = start(ctx, api, cfg, logger)
		if err != nil {
			return types.ContainerJSON{}, err
		}
	}
	if err := checkState(ctr); err != nil {
		return ctr, errors.Wrapf(err, "container %s", cfg.Name)
	}
	return ctr, nil
}

func ensureImage(ctx context.Context, api DockerAPI, cfg Config, logger log.Logger) error {
	ref := cfg.Ref()
	_, _, err := api.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return errors.Wrapf(err, "inspect image %s", ref)
	}
	logger.Infof("bootstrap: pulling image %s", ref)
	progress, err := api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return errors.Wrapf(err, "pull image %s", ref)
	}
	defer progress.Close() // nolint: errcheck
	// The pull runs for as long as the progress stream is read.
	if _, err := io.Copy(io.Discard, progress); err != nil {
		return errors.Wrapf(err, "pull image %s", ref)
	}
	return nil
}

func inspect(ctx context.Context, api DockerAPI, name string) (types.ContainerJSON, bool, error) {
	ctr, err := api.ContainerInspect(ctx, name)
	switch {
	case err == nil:
		return ctr, true, nil
	case client.IsErrNotFound(err):
		return types.ContainerJSON{}, false, nil
	}
	return types.ContainerJSON{}, false, errors.Wrapf(err, "inspect container %s", name)
}

func start(ctx context.Context, api DockerAPI, cfg Config, logger log.Logger) (types.ContainerJSON, error) {
	created, err := api.ContainerCreate(ctx,
		&container.Config{
			Image:        cfg.Ref(),
			Env:          cfg.env(),
			ExposedPorts: nat.PortSet{CouchPort: struct{}{}},
		},
		&container.HostConfig{
			PortBindings: nat.PortMap{
				CouchPort: []nat.PortBinding{{HostPort: strconv.Itoa(cfg.HostPort)}},
			},
		},
		nil, nil, cfg.Name)
	if err != nil {
		return types.ContainerJSON{}, errors.Wrapf(err, "create container %s", cfg.Name)
	}
	for _, w := range created.Warnings {
		logger.Infof("bootstrap: %s: %s", cfg.Name, w)
	}
	if err := api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return types.ContainerJSON{}, errors.Wrapf(err, "start container %s", cfg.Name)
	}
	ctr, err := api.ContainerInspect(ctx, created.ID)
	return ctr, errors.Wrapf(err, "inspect container %s", cfg.Name)
}

func containerState(ctr types.ContainerJSON) types.ContainerState {
	if ctr.ContainerJSONBase == nil || ctr.State == nil {
		return types.ContainerState{}
	}
	return *ctr.State
}

func checkState(ctr types.ContainerJSON) error {
	state := containerState(ctr)
	switch {
	case state.Status == StateRunning:
		return nil
	case state.Status == StateCreated && state.Error == "":
		return nil
	case state.Error != "":
		return errors.Errorf("is %s: %s", state.Status, state.Error)
	}
	return errors.Errorf("is %s", state.Status)
}
