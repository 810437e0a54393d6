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

package devicepath_test

import (
	efi "github.com/canonical/go-efilib"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/partchain/partchain/pkg/devicepath"
	"github.com/partchain/partchain/pkg/guid"
)

const bootloader = `\EFI\Microsoft\Boot\bootmgfw.efi`

// acpi(12) + pci(6) + hd(42) bytes; the file node for bootloader is 70 bytes
const (
	sourceSize = 60
	fileSize   = 70
)

var _ = Describe("Device paths", Label("devicepath"), func() {
	var source []byte

	BeforeEach(func() {
		var err error
		source, err = efi.DevicePath{
			&efi.ACPIDevicePathNode{HID: efi.EISAID(0x0a0341d0), UID: 0},
			&efi.PCIDevicePathNode{Function: 1, Device: 1},
			&efi.HardDriveDevicePathNode{
				PartitionNumber: 2,
				PartitionStart:  2048,
				PartitionSize:   204800,
				Signature:       efi.GUIDHardDriveSignature(guid.MustParse("5808c8aa-7e8f-42e0-85d2-e1e90434cfb3")),
				MBRType:         efi.GPT,
			},
		}.Bytes()
		Expect(err).ToNot(HaveOccurred())
		Expect(source).To(HaveLen(sourceSize + 4))
	})

	Describe("Nodes", func() {
		It("splits a path and omits the terminator", func() {
			nodes, err := devicepath.Nodes(source)
			Expect(err).ToNot(HaveOccurred())
			Expect(nodes).To(HaveLen(3))
			Expect(nodes[0].Type()).To(Equal(efi.ACPIDevicePath))
			Expect(nodes[1].Type()).To(Equal(efi.HardwareDevicePath))
			Expect(nodes[2].Type()).To(Equal(efi.MediaDevicePath))
			Expect(nodes[2].SubType()).To(Equal(efi.DevicePathNodeMediaHardDriveSubType))
		})
		It("keeps every instance up to the end of the whole path", func() {
			multi := append([]byte{}, source[:sourceSize]...)
			multi = append(multi, 0x7f, 0x01, 0x04, 0x00)
			multi = append(multi, source...)
			nodes, err := devicepath.Nodes(multi)
			Expect(err).ToNot(HaveOccurred())
			Expect(nodes).To(HaveLen(7))
			Expect(nodes[3].IsEnd()).To(BeTrue())
			Expect(nodes[3].IsEndEntire()).To(BeFalse())
			Expect(nodes[6].SubType()).To(Equal(efi.DevicePathNodeMediaHardDriveSubType))
		})
		It("copies a multi-instance path byte for byte", func() {
			multi := append([]byte{}, source[:sourceSize]...)
			multi = append(multi, 0x7f, 0x01, 0x04, 0x00)
			multi = append(multi, source...)
			nodes, err := devicepath.Nodes(multi)
			Expect(err).ToNot(HaveOccurred())

			b := devicepath.NewBuilder(len(multi))
			for _, n := range nodes {
				Expect(b.PushRaw(n)).To(Succeed())
			}
			path, err := b.Finalize()
			Expect(err).ToNot(HaveOccurred())
			Expect([]byte(path)).To(Equal(multi))
		})
		It("fails on a path without terminator", func() {
			_, err := devicepath.Nodes(source[:sourceSize])
			Expect(err).To(MatchError(devicepath.ErrUnterminated))
		})
		It("fails on impossible node lengths", func() {
			_, err := devicepath.Nodes([]byte{0x01, 0x01, 0x02, 0x00, 0x7f, 0xff, 0x04, 0x00})
			Expect(err).To(MatchError(devicepath.ErrMalformed))
			_, err = devicepath.Nodes([]byte{0x01, 0x01, 0x40, 0x00, 0x7f, 0xff, 0x04, 0x00})
			Expect(err).To(MatchError(devicepath.ErrMalformed))
		})
		It("handles an empty path", func() {
			nodes, err := devicepath.Nodes(devicepath.End)
			Expect(err).ToNot(HaveOccurred())
			Expect(nodes).To(BeEmpty())
		})
	})

	Describe("Builder", func() {
		build := func(capacity int) (*devicepath.Builder, error) {
			nodes, err := devicepath.Nodes(source)
			Expect(err).ToNot(HaveOccurred())
			b := devicepath.NewBuilder(capacity)
			for _, n := range nodes {
				if err := b.PushRaw(n); err != nil {
					return b, err
				}
			}
			return b, nil
		}

		It("copies K source nodes and appends a file node and a terminator", func() {
			b, err := build(512)
			Expect(err).ToNot(HaveOccurred())
			Expect(b.PushFile(bootloader)).To(Succeed())
			path, err := b.Finalize()
			Expect(err).ToNot(HaveOccurred())
			Expect(path).To(HaveLen(sourceSize + fileSize + 4))

			src, err := devicepath.Nodes(source)
			Expect(err).ToNot(HaveOccurred())
			nodes, err := path.Nodes()
			Expect(err).ToNot(HaveOccurred())
			Expect(nodes).To(HaveLen(len(src) + 2))
			for i := range src {
				Expect([]byte(nodes[i])).To(Equal([]byte(src[i])))
			}
			Expect(nodes[len(src)].Type()).To(Equal(efi.MediaDevicePath))
			Expect(nodes[len(src)].SubType()).To(Equal(efi.DevicePathNodeMediaFilePathSubType))
			Expect(nodes[len(src)+1].IsEndEntire()).To(BeTrue())
			Expect([]byte(path[len(path)-4:])).To(Equal([]byte(devicepath.End)))
		})

		It("produces a path go-efilib can decode", func() {
			b, err := build(512)
			Expect(err).ToNot(HaveOccurred())
			Expect(b.PushFile(bootloader)).To(Succeed())
			path, err := b.Finalize()
			Expect(err).ToNot(HaveOccurred())

			dp, err := path.Decode()
			Expect(err).ToNot(HaveOccurred())
			Expect(dp).To(HaveLen(4))
			Expect(dp[3]).To(Equal(efi.FilePathDevicePathNode(bootloader)))
			Expect(path.String()).To(ContainSubstring("bootmgfw.efi"))
		})

		It("fails while copying when the source does not fit", func() {
			b, err := build(40)
			Expect(err).To(MatchError(devicepath.ErrBufferFull))
			Expect(b.NodeCount()).To(Equal(2))
			Expect(b.Len()).To(Equal(18))
		})

		It("fails to finalize when the terminator does not fit", func() {
			b, err := build(sourceSize + fileSize)
			Expect(err).ToNot(HaveOccurred())
			Expect(b.PushFile(bootloader)).To(Succeed())
			_, err = b.Finalize()
			Expect(err).To(MatchError(devicepath.ErrBufferFull))
		})

		It("fills the buffer exactly", func() {
			b, err := build(sourceSize + fileSize + 4)
			Expect(err).ToNot(HaveOccurred())
			Expect(b.PushFile(bootloader)).To(Succeed())
			path, err := b.Finalize()
			Expect(err).ToNot(HaveOccurred())
			Expect(path).To(HaveLen(b.Cap()))
		})

		It("refuses end nodes and pushes after finalizing", func() {
			b := devicepath.NewBuilder(64)
			Expect(b.PushRaw(devicepath.End)).To(MatchError(devicepath.ErrMalformed))
			_, err := b.Finalize()
			Expect(err).ToNot(HaveOccurred())
			Expect(b.PushFile(bootloader)).To(MatchError(devicepath.ErrFinalized))
			_, err = b.Finalize()
			Expect(err).To(MatchError(devicepath.ErrFinalized))
		})
	})
})
