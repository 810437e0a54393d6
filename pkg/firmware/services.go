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

// Package firmware describes the subset of UEFI boot services the chainloader
// consumes and the protocol structures it reads from them.
package firmware

import (
	efi "github.com/canonical/go-efilib"
)

// Handle corresponds to EFI_HANDLE. It is owned by the firmware.
type Handle uintptr

// ImageHandle is the EFI_HANDLE of a loaded image.
type ImageHandle uintptr

// BootPolicy is the BootPolicy argument of EFI_BOOT_SERVICES.LoadImage().
type BootPolicy bool

const (
	// ExactMatch requires the firmware to load exactly the file named by
	// the device path.
	ExactMatch BootPolicy = false
	// BootSelection lets the firmware apply boot manager policy, e.g.
	// fall back to the removable media default file.
	BootSelection BootPolicy = true
)

func (p BootPolicy) String() string {
	if p == ExactMatch {
		return "ExactMatch"
	}
	return "BootSelection"
}

var (
	// PartitionInfoProtocol is EFI_PARTITION_INFO_PROTOCOL_GUID.
	PartitionInfoProtocol = efi.MakeGUID(0x8cf2f62c, 0xbc9b, 0x4821, 0x808d, [...]uint8{0xec, 0x9e, 0xc4, 0x21, 0xa1, 0xa0})
	// DevicePathProtocol is EFI_DEVICE_PATH_PROTOCOL_GUID.
	DevicePathProtocol = efi.MakeGUID(0x09576e91, 0x6d3f, 0x11d2, 0x8e39, [...]uint8{0x00, 0xa0, 0xc9, 0x69, 0x72, 0x3b})
)

// BootServices is the firmware surface used by the chainloader. Protocol
// interfaces are returned as byte snapshots of the firmware owned structure.
// Callers must not assume alignment and must not retain them past the call
// sequence that produced them.
type BootServices interface {
	// CurrentImage returns the handle of the running image, used as the
	// parent for LoadImage.
	CurrentImage() ImageHandle
	// LocateHandleBuffer returns every handle that supports protocol.
	LocateHandleBuffer(protocol efi.GUID) ([]Handle, error)
	// OpenProtocol opens protocol on handle with GET_PROTOCOL semantics.
	OpenProtocol(handle Handle, protocol efi.GUID) ([]byte, error)
	// LoadImage loads the image named by a serialized device path.
	LoadImage(policy BootPolicy, parent ImageHandle, path []byte) (ImageHandle, error)
	// StartImage transfers control to a loaded image. On real firmware it
	// only returns if the image exits or fails to start.
	StartImage(image ImageHandle) error
}
