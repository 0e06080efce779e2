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
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/magengit/couchrest/cmd/couchrest/errors"
)

const envPrefix = "COUCHREST"

// Keys shared by the command line flags, the config file, and the
// COUCHREST_* environment variables.
const (
	keyURL      = "url"
	keyUser     = "user"
	keyPassword = "password"
	keyOutput   = "output"
	keyTimeout  = "timeout"
)

// config is the resolved CLI configuration. Flags take precedence over the
// environment, which takes precedence over the config file.
type config struct {
	URL      string        `mapstructure:"url" validate:"required,url"`
	User     string        `mapstructure:"user" validate:"required_with=Password"`
	Password string        `mapstructure:"password"`
	Output   string        `mapstructure:"output" validate:"oneof=json yaml"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

var validate = validator.New()

// bindFlags makes the settings flags in pf the highest priority source for
// their keys.
func bindFlags(v *viper.Viper, pf *pflag.FlagSet) error {
	for _, key := range []string{keyURL, keyUser, keyPassword, keyOutput, keyTimeout} {
		if err := v.BindPFlag(key, pf.Lookup(key)); err != nil {
			return err
		}
	}
	return nil
}

func (r *root) readConfig() (*config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	pf := r.cmd.PersistentFlags()
	if err := bindFlags(v, pf); err != nil {
		return nil, errors.Code(errors.ErrUsage, err)
	}

	path := r.resolveHome(r.confFile)
	switch _, err := os.Stat(path); {
	case err == nil:
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Code(errors.ErrData, err)
		}
		r.log.Debugf("Read config file %s", path)
	case pf.Changed("config"):
		return nil, errors.Code(errors.ErrNoInput, err)
	default:
		r.log.Debugf("No config file at %s", path)
	}

	conf := &config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Code(errors.ErrUsage, err)
	}
	if err := validate.Struct(conf); err != nil {
		return nil, errors.Code(errors.ErrUsage, err)
	}
	return conf, nil
}
