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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/partchain/partchain/cmd/config"
	"github.com/partchain/partchain/pkg/efi"
	partchainError "github.com/partchain/partchain/pkg/error"
	"github.com/partchain/partchain/pkg/utils"
)

// NewRegisterCmd returns the subcommand adding a firmware boot entry for the
// chainloader binary. addCheckRoot is to initiate it with or without the
// CheckRoot pre-run check. This is mostly used for testing purposes.
func NewRegisterCmd(root *cobra.Command, addCheckRoot bool) *cobra.Command {
	c := &cobra.Command{
		Use:   "register",
		Short: "Add a firmware boot entry for the chainloader",
		Args:  cobra.ExactArgs(0),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if addCheckRoot {
				return CheckRoot()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfigRun(viper.GetString("config-dir"))
			if err != nil {
				cfg.Logger.Errorf("Error reading config: %s\n", err)
				return partchainError.NewFromError(err, partchainError.ReadingConfig)
			}

			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			spec, err := config.ReadRegisterSpec(cfg, cmd.Flags())
			if err != nil {
				cfg.Logger.Errorf("Invalid register command setup %v", err)
				return partchainError.NewFromError(err, partchainError.InvalidSpec)
			}

			if ok, _ := utils.Exists(cfg.Fs, spec.Loader); !ok {
				return partchainError.New(fmt.Sprintf("loader %s not found", spec.Loader), partchainError.InvalidSpec)
			}
			rel, _ := spec.RelativeLoader()

			if !efi.VariablesSupported(cfg.EFIVariables) {
				return partchainError.New("EFI variables are not available on this system", partchainError.EFIVariables)
			}
			bm, err := efi.NewBootManagerForVariables(cfg.Logger, cfg.EFIVariables)
			if err != nil {
				return partchainError.NewFromError(err, partchainError.EFIVariables)
			}
			num, err := bm.Register(efi.BootEntry{Filename: rel, Label: spec.Label, Options: spec.Options}, spec.ESP)
			if err != nil {
				cfg.Logger.Errorf("Failed registering %s: %v", spec.Loader, err)
				return partchainError.NewFromError(err, partchainError.RegisterEntry)
			}
			fmt.Printf("Boot%04X %s\n", num, spec.Label)
			return nil
		},
	}
	root.AddCommand(c)
	addRegisterFlags(c)
	return c
}

// register the subcommand into rootCmd
var _ = NewRegisterCmd(rootCmd, true)
