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

package cmd

import (
	"fmt"
	"os"

	"github.com/sanity-io/litter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/partchain/partchain/cmd/config"
	"github.com/partchain/partchain/pkg/chainload"
	"github.com/partchain/partchain/pkg/emulator"
	partchainError "github.com/partchain/partchain/pkg/error"
	"github.com/partchain/partchain/pkg/firmware"
	"github.com/partchain/partchain/pkg/types"
)

// NewSimulateCmd returns the subcommand running the chainloader against
// firmware emulated from a raw disk image
func NewSimulateCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "simulate",
		Short: "Run the chainloader against an emulated firmware",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfigRun(viper.GetString("config-dir"))
			if err != nil {
				cfg.Logger.Errorf("Error reading config: %s\n", err)
				return partchainError.NewFromError(err, partchainError.ReadingConfig)
			}

			if err := validateOutputFlag(cmd.Flags()); err != nil {
				return partchainError.NewFromError(err, partchainError.InvalidSpec)
			}

			// Set this after parsing of the flags, so it fails on parsing and prints usage properly
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true // Do not propagate errors down the line, we control them

			spec, err := config.ReadSimulateSpec(cfg, cmd.Flags())
			if err != nil {
				cfg.Logger.Errorf("Invalid simulate command setup %v", err)
				return partchainError.NewFromError(err, partchainError.InvalidSpec)
			}
			return runSimulate(cfg, spec)
		},
	}
	root.AddCommand(c)
	addSimulateFlags(c)
	return c
}

func runSimulate(cfg *types.Config, spec *types.SimulateSpec) error {
	fw, err := emulator.Open(spec.Image, emulator.WithLogger(cfg.Logger), emulator.WithStartStatus(spec.StartStatus))
	if err != nil {
		cfg.Logger.Errorf("Failed opening %s: %v", spec.Image, err)
		return partchainError.NewFromError(err, partchainError.OpenImage)
	}
	defer fw.Close()

	cl := chainload.New(fw,
		chainload.WithLogger(cfg.Logger),
		chainload.WithTarget(spec.Target),
		chainload.WithBootloader(spec.Bootloader),
		chainload.WithBufferSize(spec.BufferSize),
	)
	status := cl.Run()
	report := cl.Report()

	if types.IsDebugLevel(cfg.Logger) {
		cfg.Logger.Debugf("Emulated partitions: %s", litter.Sdump(fw.Partitions()))
		cfg.Logger.Debugf("Emulated images: %s", litter.Sdump(fw.Images()))
		cfg.Logger.Debugf("Run report: %s", litter.Sdump(report))
	}

	switch spec.Output {
	case "yaml":
		err = report.WriteYAML(os.Stdout)
	default:
		err = report.WriteText(os.Stdout)
	}
	if err != nil {
		return partchainError.NewFromError(err, partchainError.WriteOutput)
	}

	switch status {
	case firmware.Success:
		return nil
	case firmware.NotFound:
		return partchainError.New(fmt.Sprintf("no partition with unique GUID %s", spec.Target), partchainError.TargetNotFound)
	default:
		return partchainError.New(fmt.Sprintf("chainload finished with %s", status), partchainError.ChainloadFailed)
	}
}

// register the subcommand into rootCmd
var _ = NewSimulateCmd(rootCmd)
