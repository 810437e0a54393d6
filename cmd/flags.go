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
	"github.com/spf13/pflag"

	"github.com/partchain/partchain/pkg/constants"
	"github.com/partchain/partchain/pkg/target"
)

// addTargetFlag adds the flag selecting the unique partition GUID to look for
func addTargetFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("target", "t", "", fmt.Sprintf("Unique partition GUID to boot from (default %s)", target.String()))
}

// addOutputFlag adds the flag selecting how results are printed
func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", constants.SimulateFormat, fmt.Sprintf("Output format, one of %v", constants.GetSimulateFormats()))
}

// addSimulateFlags adds the flags shaping an emulated chainload
func addSimulateFlags(cmd *cobra.Command) {
	addTargetFlag(cmd)
	addOutputFlag(cmd)
	cmd.Flags().StringP("image", "i", "", "Raw disk image to emulate the firmware from")
	cmd.Flags().StringP("bootloader", "b", "", fmt.Sprintf("Boot loader path in the target partition (default %s)", constants.BootloaderPath))
	cmd.Flags().Int("buffer-size", constants.ScratchBufferSize, "Size in bytes of the device path scratch buffer")
	cmd.Flags().String("start-status", "", "Status the emulated boot loader returns from StartImage")
}

// addRegisterFlags adds the flags describing the firmware boot entry
func addRegisterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("loader", "l", "", fmt.Sprintf("Chainloader binary inside the ESP (default %s)", constants.LoaderPath))
	cmd.Flags().String("label", "", fmt.Sprintf("Boot entry description (default %s)", constants.LoaderLabel))
	cmd.Flags().String("esp", "", fmt.Sprintf("Mount point of the EFI system partition (default %s)", constants.EfiMountPoint))
	cmd.Flags().String("options", "", "Optional data passed to the chainloader")
}

// validateOutputFlag fails early on an unknown output format
func validateOutputFlag(flags *pflag.FlagSet) error {
	out, _ := flags.GetString("output")
	for _, f := range constants.GetSimulateFormats() {
		if out == f {
			return nil
		}
	}
	return fmt.Errorf("unknown output format '%s', valid formats are %v", out, constants.GetSimulateFormats())
}
