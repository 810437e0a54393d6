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

package types_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/partchain/partchain/pkg/constants"
	"github.com/partchain/partchain/pkg/guid"
	"github.com/partchain/partchain/pkg/types"
)

var _ = Describe("Types", Label("types", "config"), func() {
	Describe("SimulateSpec", func() {
		var spec *types.SimulateSpec

		BeforeEach(func() {
			spec = &types.SimulateSpec{
				Image:      "disk.img",
				Target:     guid.MustParse("5808c8aa-7e8f-42e0-85d2-e1e90434cfb3"),
				Bootloader: constants.BootloaderPath,
				BufferSize: constants.ScratchBufferSize,
				Output:     "text",
			}
		})
		It("accepts a complete spec", func() {
			Expect(spec.Sanitize()).To(Succeed())
		})
		It("reports every problem at once", func() {
			spec.Image = ""
			spec.Bootloader = "EFI/boot.efi"
			spec.BufferSize = 0
			spec.Output = "json"
			err := spec.Sanitize()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("5 errors occurred"))
			Expect(err.Error()).To(ContainSubstring("undefined disk image"))
			Expect(err.Error()).To(ContainSubstring("unknown output format 'json'"))
		})
		It("rejects the nil GUID", func() {
			spec.Target = guid.MustParse("00000000-0000-0000-0000-000000000000")
			Expect(spec.Sanitize()).To(MatchError(ContainSubstring("nil GUID")))
		})
	})

	Describe("RegisterSpec", func() {
		var spec *types.RegisterSpec

		BeforeEach(func() {
			spec = &types.RegisterSpec{
				Loader: constants.LoaderPath,
				Label:  constants.LoaderLabel,
				ESP:    constants.EfiMountPoint,
			}
		})
		It("accepts a loader inside the ESP", func() {
			Expect(spec.Sanitize()).To(Succeed())
			rel, err := spec.RelativeLoader()
			Expect(err).ToNot(HaveOccurred())
			Expect(rel).To(Equal("EFI/partchain/partchain.efi"))
		})
		It("rejects a loader outside the ESP", func() {
			spec.Loader = "/usr/lib/partchain/partchain.efi"
			Expect(spec.Sanitize()).To(MatchError(ContainSubstring("is not inside the ESP")))
		})
		It("rejects relative paths and empty labels", func() {
			spec.Loader = "partchain.efi"
			spec.ESP = "boot/efi"
			spec.Label = ""
			err := spec.Sanitize()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("3 errors occurred"))
		})
	})
})
