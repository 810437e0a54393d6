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
	"encoding/binary"
	"fmt"

	"github.com/spf13/cobra"

	partchainError "github.com/partchain/partchain/pkg/error"
	"github.com/partchain/partchain/pkg/guid"
	"github.com/partchain/partchain/pkg/target"
)

// NewGUIDCmd returns the subcommand showing how a GUID literal is laid out
// in firmware partition metadata
func NewGUIDCmd(root *cobra.Command) *cobra.Command {
	c := &cobra.Command{
		Use:   "guid [GUID]",
		Short: "Decode a partition GUID into its EFI byte layout",
		Long:  "Decode a partition GUID into its EFI byte layout. Without arguments the compiled-in target is shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			literal := target.String()
			if len(args) == 1 {
				literal = args[0]
			}
			cmd.SilenceUsage = true

			g, err := guid.Parse(literal)
			if err != nil {
				return partchainError.NewFromError(err, partchainError.InvalidGUID)
			}
			fmt.Printf("guid:  %s\n", guid.Format(g))
			fmt.Printf("bytes: % x\n", g[:])
			fmt.Printf("data1: %#08x\n", binary.LittleEndian.Uint32(g[0:4]))
			fmt.Printf("data2: %#04x\n", binary.LittleEndian.Uint16(g[4:6]))
			fmt.Printf("data3: %#04x\n", binary.LittleEndian.Uint16(g[6:8]))
			fmt.Printf("data4: % x\n", g[8:16])
			u := guid.ToUUID(g)
			fmt.Printf("uuid:  %x\n", u[:])
			return nil
		},
	}
	root.AddCommand(c)
	return c
}

// register the subcommand into rootCmd
var _ = NewGUIDCmd(rootCmd)
