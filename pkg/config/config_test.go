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

package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/twpayne/go-vfs/v4"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/partchain/partchain/pkg/config"
	"github.com/partchain/partchain/pkg/constants"
	"github.com/partchain/partchain/pkg/efi"
	"github.com/partchain/partchain/pkg/firmware"
	"github.com/partchain/partchain/pkg/mocks"
	"github.com/partchain/partchain/pkg/target"
	"github.com/partchain/partchain/pkg/types"
)

var _ = Describe("Types", Label("types", "config"), func() {
	Describe("Config", func() {
		It("Sets the proper interfaces in the config struct", func() {
			fs, cleanup, err := vfst.NewTestFS(map[string]interface{}{})
			Expect(err).ToNot(HaveOccurred())
			defer cleanup()
			logger := types.NewNullLogger()
			vars := mocks.NewMockEFIVariables()

			c := config.NewConfig(
				config.WithFs(fs),
				config.WithLogger(logger),
				config.WithEFIVariables(vars),
			)
			Expect(c.Fs).To(Equal(fs))
			Expect(c.Logger).To(Equal(logger))
			Expect(c.EFIVariables).To(Equal(vars))
		})
		It("Falls back to the host backends", func() {
			c := config.NewConfig()
			Expect(c.Fs).To(Equal(vfs.OSFS))
			Expect(c.EFIVariables).To(Equal(efi.RealEFIVariables{}))
		})
	})
	Describe("Specs", func() {
		It("defaults simulate to the compiled-in target", func() {
			spec := config.NewSimulateSpec()
			Expect(spec.Target).To(Equal(target.GUID()))
			Expect(spec.Bootloader).To(Equal(constants.BootloaderPath))
			Expect(spec.StartStatus).To(Equal(firmware.Success))
			// a default spec only misses the image
			spec.Image = "disk.img"
			Expect(spec.Sanitize()).To(Succeed())
		})
		It("defaults register to the ESP loader", func() {
			spec := config.NewRegisterSpec()
			Expect(spec.Sanitize()).To(Succeed())
			Expect(spec.Loader).To(Equal(constants.LoaderPath))
		})
	})
})
