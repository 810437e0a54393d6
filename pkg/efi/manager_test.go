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

package efi_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	efilib "github.com/canonical/go-efilib"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/twpayne/go-vfs/v4/vfst"

	"github.com/partchain/partchain/pkg/constants"
	"github.com/partchain/partchain/pkg/efi"
	"github.com/partchain/partchain/pkg/mocks"
	"github.com/partchain/partchain/pkg/types"
)

func bootOrder(vars efi.Variables) []uint16 {
	data, _, err := vars.GetVariable(efilib.GlobalVariable, "BootOrder")
	Expect(err).ToNot(HaveOccurred())
	order := make([]uint16, len(data)/2)
	for i := range order {
		order[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return order
}

var _ = Describe("EFI Manager", Label("efi", "manager"), func() {
	var memLog *bytes.Buffer
	var logger types.Logger
	var vars *mocks.MockEFIVariables
	var cleanup func()
	var entry efi.BootEntry

	BeforeEach(func() {
		memLog = &bytes.Buffer{}
		logger = types.NewBufferLogger(memLog)
		logger.SetLevel(logrus.DebugLevel)

		fs, clean, err := vfst.NewTestFS(map[string]interface{}{
			"/boot/efi/EFI/partchain/partchain.efi": "MZ",
		})
		Expect(err).ToNot(HaveOccurred())
		cleanup = clean
		vars = mocks.NewMockEFIVariables().WithFs(fs)
		entry = efi.BootEntry{Filename: "EFI/partchain/partchain.efi", Label: constants.LoaderLabel}
	})
	AfterEach(func() {
		cleanup()
	})

	It("creates a BootManager without error", func() {
		manager, err := efi.NewBootManagerForVariables(logger, vars)
		Expect(err).To(BeNil())
		Expect(manager.Entries()).To(BeEmpty())
		Expect(manager.BootOrder()).To(BeEmpty())
	})

	It("creates a BootManager with ReadLoadOptions error", func() {
		vars.WithLoadOptionError(fmt.Errorf("cannot read device path"))

		Expect(vars.SetVariable(efilib.GlobalVariable, "BootOrder", []byte{1, 0}, efilib.AttributeNonVolatile)).To(Succeed())
		Expect(vars.SetVariable(efilib.GlobalVariable, "Boot0001", []byte("test.efi"), efilib.AttributeNonVolatile)).To(Succeed())

		manager, err := efi.NewBootManagerForVariables(logger, vars)
		Expect(err).To(BeNil())
		Expect(manager.Entries()).To(BeEmpty())
		Expect(manager.BootOrder()).To(Equal([]int{1}))
		Expect(memLog.String()).To(ContainSubstring("Ignoring Boot0001"))
	})

	It("fails when variables are not supported", func() {
		vars.WithListError(errors.New("no efivarfs"))
		_, err := efi.NewBootManagerForVariables(logger, vars)
		Expect(err).To(HaveOccurred())
	})

	Describe("Register", func() {
		var existing []byte

		BeforeEach(func() {
			var err error
			existing, err = (&efilib.LoadOption{
				Attributes:  efilib.LoadOptionActive,
				Description: "other",
				FilePath:    efilib.DevicePath{efilib.NewFilePathDevicePathNode(`\EFI\other\grubx64.efi`)},
			}).Bytes()
			Expect(err).ToNot(HaveOccurred())
		})

		It("adds the first entry and puts it in front", func() {
			manager, err := efi.NewBootManagerForVariables(logger, vars)
			Expect(err).ToNot(HaveOccurred())

			num, err := manager.Register(entry, constants.EfiMountPoint)
			Expect(err).ToNot(HaveOccurred())
			Expect(num).To(Equal(0))
			Expect(bootOrder(vars)).To(Equal([]uint16{0}))

			data, _, err := vars.GetVariable(efilib.GlobalVariable, "Boot0000")
			Expect(err).ToNot(HaveOccurred())
			option, err := efilib.ReadLoadOption(bytes.NewReader(data))
			Expect(err).ToNot(HaveOccurred())
			Expect(option.Description).To(Equal(constants.LoaderLabel))
			Expect(option.IsActive()).To(BeTrue())
			Expect(option.FilePath).To(HaveLen(1))
			Expect(option.FilePath[0]).To(Equal(efilib.FilePathDevicePathNode(`\EFI\partchain\partchain.efi`)))
		})
		It("takes the next free number and keeps the previous order", func() {
			Expect(vars.SetVariable(efilib.GlobalVariable, "Boot0000", existing, efilib.AttributeNonVolatile|efilib.AttributeBootserviceAccess|efilib.AttributeRuntimeAccess)).To(Succeed())
			Expect(vars.SetVariable(efilib.GlobalVariable, "BootOrder", []byte{0, 0}, efilib.AttributeNonVolatile)).To(Succeed())

			manager, err := efi.NewBootManagerForVariables(logger, vars)
			Expect(err).ToNot(HaveOccurred())
			Expect(manager.Entries()).To(HaveLen(1))
			Expect(manager.Entries()[0].Description()).To(Equal("other"))

			num, err := manager.Register(entry, constants.EfiMountPoint)
			Expect(err).ToNot(HaveOccurred())
			Expect(num).To(Equal(1))
			Expect(bootOrder(vars)).To(Equal([]uint16{1, 0}))
			Expect(manager.Entries()[1].Name()).To(Equal("Boot0001"))
		})
		It("reuses an identical entry", func() {
			manager, err := efi.NewBootManagerForVariables(logger, vars)
			Expect(err).ToNot(HaveOccurred())
			first, err := manager.Register(entry, constants.EfiMountPoint)
			Expect(err).ToNot(HaveOccurred())

			manager, err = efi.NewBootManagerForVariables(logger, vars)
			Expect(err).ToNot(HaveOccurred())
			second, err := manager.Register(entry, constants.EfiMountPoint)
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(Equal(first))
			Expect(manager.Entries()).To(HaveLen(1))
			Expect(memLog.String()).To(ContainSubstring("Reusing boot entry Boot0000"))
		})
		It("fails if the loader is not on the ESP", func() {
			manager, err := efi.NewBootManagerForVariables(logger, vars)
			Expect(err).ToNot(HaveOccurred())
			entry.Filename = "EFI/missing.efi"
			_, err = manager.Register(entry, constants.EfiMountPoint)
			Expect(err).To(HaveOccurred())
		})
		It("fails if variables cannot be written", func() {
			manager, err := efi.NewBootManagerForVariables(logger, vars)
			Expect(err).ToNot(HaveOccurred())
			vars.WithSetError(errors.New("read-only"))
			_, err = manager.Register(entry, constants.EfiMountPoint)
			Expect(err).To(MatchError("read-only"))
		})
	})

	It("drops unknown and duplicated numbers from the boot order", func() {
		manager, err := efi.NewBootManagerForVariables(logger, vars)
		Expect(err).ToNot(HaveOccurred())
		num, err := manager.FindOrCreateEntry(entry, constants.EfiMountPoint)
		Expect(err).ToNot(HaveOccurred())

		Expect(manager.PrependAndSetBootOrder([]int{7, num, num})).To(Succeed())
		Expect(manager.BootOrder()).To(Equal([]int{num}))
	})

	It("finds the next free entry", func() {
		manager, err := efi.NewBootManagerForVariables(logger, vars)
		Expect(err).ToNot(HaveOccurred())
		Expect(manager.NextFreeEntry()).To(Equal(0))
	})
})
