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

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/partchain/partchain/cmd/config"
	partchainError "github.com/partchain/partchain/pkg/error"
	"github.com/partchain/partchain/pkg/guid"
	"github.com/partchain/partchain/pkg/target"
	"github.com/partchain/partchain/pkg/utils"
)

type probeEntry struct {
	utils.Partition `yaml:",inline"`
	GUID            string `yaml:"guid,omitempty"`
	Target          bool   `yaml:"target"`
}

// NewProbeCmd returns the subcommand listing host partitions and marking
// the one the chainloader would boot
func NewProbeCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "probe",
		Short: "List host partitions and find the boot target",
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

			want := target.GUID()
			if lit, _ := cmd.Flags().GetString("target"); lit != "" {
				if want, err = guid.Parse(lit); err != nil {
					return partchainError.NewFromError(err, partchainError.InvalidGUID)
				}
			}
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			parts, err := utils.GetAllPartitions()
			if err != nil {
				cfg.Logger.Errorf("Failed probing block devices: %v", err)
				return partchainError.NewFromError(err, partchainError.ProbeDevices)
			}
			cfg.Logger.Debugf("Found %d partitions", len(parts))

			entries := make([]probeEntry, 0, len(parts))
			found := false
			for _, p := range parts {
				e := probeEntry{Partition: *p}
				if p.HasGUID() {
					e.GUID = p.GUID.String()
					e.Target = p.GUID == want
					found = found || e.Target
				}
				entries = append(entries, e)
			}

			output, _ := cmd.Flags().GetString("output")
			if output == "yaml" {
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				if err = enc.Encode(entries); err != nil {
					return partchainError.NewFromError(err, partchainError.WriteOutput)
				}
			} else {
				for _, e := range entries {
					mark := " "
					if e.Target {
						mark = "*"
					}
					fmt.Printf("%s %-16s %-10s %-8s %-36s %s\n", mark, e.Path, units.BytesSize(float64(e.Size)), e.FS, e.PartUUID, e.Name)
				}
			}

			if !found {
				cfg.Logger.Warnf("No partition with unique GUID %s", want)
				return partchainError.New(fmt.Sprintf("no partition with unique GUID %s", want), partchainError.TargetNotFound)
			}
			return nil
		},
	}
	root.AddCommand(c)
	addTargetFlag(c)
	addOutputFlag(c)
	return c
}

// register the subcommand into rootCmd
var _ = NewProbeCmd(rootCmd)
