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

package constants

import (
	"debug/pe"
	"os"
)

const (
	// BootloaderPath is the file the chainloader loads from the target
	// partition, in the firmware's path convention.
	BootloaderPath = `\EFI\Microsoft\Boot\bootmgfw.efi`

	// ScratchBufferSize bounds the device path built for LoadImage.
	ScratchBufferSize = 512

	// Build configuration of the target partition GUID
	TargetGUIDEnv = "PARTCHAIN_BOOT_PARTITION_GUID"
	BuildEnvFile  = "build.env"

	// Host tooling
	ConfigDir      = "/etc/partchain"
	EnvFile        = "partchain.env"
	EnvPrefix      = "PARTCHAIN"
	EfiMountPoint  = "/boot/efi"
	LoaderLabel    = "partchain"
	LoaderPath     = EfiMountPoint + "/EFI/partchain/partchain.efi"
	MaxBootEntries = 65535
	SimulateFormat = "text"

	// Default directory and file fileModes
	DirPerm  = os.ModeDir | os.ModePerm
	FilePerm = 0666
)

// GetRemovableMediaPaths returns the default boot file per PE machine type,
// used when the firmware applies boot manager policy.
func GetRemovableMediaPaths() map[uint16]string {
	return map[uint16]string{
		pe.IMAGE_FILE_MACHINE_AMD64: `\EFI\BOOT\BOOTX64.EFI`,
		pe.IMAGE_FILE_MACHINE_I386:  `\EFI\BOOT\BOOTIA32.EFI`,
		pe.IMAGE_FILE_MACHINE_ARM64: `\EFI\BOOT\BOOTAA64.EFI`,
		pe.IMAGE_FILE_MACHINE_ARMNT: `\EFI\BOOT\BOOTARM.EFI`,
	}
}

// GetSimulateFormats returns the output formats accepted by simulate.
func GetSimulateFormats() []string {
	return []string{"text", "yaml"}
}
