/*
Copyright © 2025 SUSE LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	efi "github.com/canonical/go-efilib"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/partchain/partchain/pkg/config"
	"github.com/partchain/partchain/pkg/constants"
	"github.com/partchain/partchain/pkg/firmware"
	"github.com/partchain/partchain/pkg/guid"
	"github.com/partchain/partchain/pkg/types"
	"github.com/partchain/partchain/pkg/utils"
)

var decodeHook = viper.DecodeHook(
	mapstructure.ComposeDecodeHookFunc(
		GUIDHookFunc(),
		StatusHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	),
)

func setDecoder(config *mapstructure.DecoderConfig) {
	// Make sure we zero fields before applying them, this is relevant for slices
	// so we do not merge with any already present value and directly apply whatever
	// we got form configs.
	config.ZeroFields = true
}

// GUIDHookFunc decodes GUID literals into the EFI byte layout
func GUIDHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(efi.GUID{}) || from.Kind() != reflect.String {
			return data, nil
		}
		return guid.Parse(data.(string))
	}
}

// StatusHookFunc decodes firmware status names such as NOT_FOUND
func StatusHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(firmware.Status(0)) || from.Kind() != reflect.String {
			return data, nil
		}
		return firmware.ParseStatus(data.(string))
	}
}

func configLogger(log types.Logger, vfs types.FS) {
	// Set debug level
	if viper.GetBool("debug") {
		log.SetLevel(types.DebugLevel())
	}

	// Set formatter so both file and stdout format are equal
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:      true,
		DisableColors:    false,
		DisableTimestamp: false,
		FullTimestamp:    true,
	})

	// Logfile
	logfile := viper.GetString("logfile")
	if logfile != "" {
		if err := utils.MkdirAll(vfs, filepath.Dir(logfile), constants.DirPerm); err != nil {
			log.Errorf("Could not create the directory of %s: %s", logfile, err.Error())
		}
		o, err := vfs.OpenFile(logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fs.ModePerm)

		if err != nil {
			log.Errorf("Could not open %s for logging to file: %s", logfile, err.Error())
		}

		// else set it to both stdout and the file
		if viper.GetBool("quiet") {
			log.SetOutput(o)
		} else {
			mw := io.MultiWriter(os.Stdout, o)
			log.SetOutput(mw)
		}
	} else { // no logfile
		if viper.GetBool("quiet") { // quiet is enabled so discard all logging
			log.SetOutput(io.Discard)
		} else { // default to stdout
			log.SetOutput(os.Stdout)
		}
	}
}

// ReadConfigRun merges config.yaml and config.d/*.yaml from configDir and
// returns the runtime configuration
func ReadConfigRun(configDir string, opts ...config.GenericOptions) (*types.Config, error) {
	cfg := config.NewConfig(append([]config.GenericOptions{config.WithLogger(types.NewLogger())}, opts...)...)
	if cfg == nil {
		return nil, fmt.Errorf("failed initializing configuration")
	}
	configLogger(cfg.Logger, cfg.Fs)

	if configDir == "" {
		configDir = constants.ConfigDir
	}

	viper.AddConfigPath(configDir)
	viper.SetConfigType("yaml")
	viper.SetConfigName("config.yaml")
	// If a config file is found, read it in.
	if err := viper.MergeInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return cfg, err
		}
	}

	// Load extra config files on configdir/config.d/ so we can override config values
	cfgExtra := filepath.Join(configDir, "config.d")
	if ok, _ := utils.IsDir(cfg.Fs, cfgExtra); ok {
		entries, err := cfg.Fs.ReadDir(cfgExtra)
		if err != nil {
			return cfg, err
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
				continue
			}
			raw, err := cfg.Fs.ReadFile(filepath.Join(cfgExtra, e.Name()))
			if err != nil {
				return cfg, err
			}
			if err = viper.MergeConfig(strings.NewReader(string(raw))); err != nil {
				return cfg, fmt.Errorf("merging %s: %w", e.Name(), err)
			}
		}
	}

	// Variables already in the environment win over the env file
	envFile := filepath.Join(configDir, constants.EnvFile)
	if err := godotenv.Load(envFile); err != nil {
		cfg.Logger.Debugf("Error loading %s: %s", envFile, err.Error())
	}

	// Set the prefix for vars so we get only the ones starting with PARTCHAIN
	viper.SetEnvPrefix(constants.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if viper.GetBool("debug") {
		cfg.Logger.SetLevel(types.DebugLevel())
	}
	return cfg, nil
}

// ReadSimulateSpec builds the simulate spec from defaults, the simulate
// section of the config, PARTCHAIN_SIMULATE_* variables and flags
func ReadSimulateSpec(r *types.Config, flags *pflag.FlagSet) (*types.SimulateSpec, error) {
	spec := config.NewSimulateSpec()
	if err := unmarshallSpec(r, "simulate", spec, flags); err != nil {
		return nil, err
	}
	return spec, spec.Sanitize()
}

// ReadRegisterSpec builds the register spec the same way as ReadSimulateSpec
func ReadRegisterSpec(r *types.Config, flags *pflag.FlagSet) (*types.RegisterSpec, error) {
	spec := config.NewRegisterSpec()
	if err := unmarshallSpec(r, "register", spec, flags); err != nil {
		return nil, err
	}
	return spec, spec.Sanitize()
}

func unmarshallSpec(r *types.Config, subkey string, spec interface{}, flags *pflag.FlagSet) error {
	vp := viper.Sub(subkey)
	if vp == nil {
		vp = viper.New()
	}
	// Set the prefix for vars so we get only the ones starting with PARTCHAIN_[SUBKEY]
	vp.SetEnvPrefix(fmt.Sprintf("%s_%s", constants.EnvPrefix, strings.ToUpper(subkey)))
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	bindEnvKeys(vp, spec)

	if flags != nil {
		bindGivenFlags(vp, flags)
	}

	if err := vp.Unmarshal(spec, setDecoder, decodeHook); err != nil {
		r.Logger.Warnf("error unmarshalling %s spec: %s", subkey, err)
		return err
	}
	r.Logger.Debugf("Loaded %s spec: %+v", subkey, spec)
	return nil
}

// bindEnvKeys binds every mapstructure key of spec to its environment
// variable, Unmarshal only sees keys viper already knows about
func bindEnvKeys(vp *viper.Viper, spec interface{}) {
	t := reflect.TypeOf(spec)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		if key := t.Field(i).Tag.Get("mapstructure"); key != "" && key != "-" {
			_ = vp.BindEnv(key)
		}
	}
}

// bindGivenFlags binds only the flags set on the command line, so defaults
// from flags do not override config files
func bindGivenFlags(vp *viper.Viper, flagSet *pflag.FlagSet) {
	flagSet.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			_ = vp.BindPFlag(f.Name, f)
		}
	})
}
