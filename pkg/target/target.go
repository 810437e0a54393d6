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

// Package target holds the unique partition GUID compiled into the
// chainloader. The value is generated from the build configuration by
// `go generate`; regenerate after changing PARTCHAIN_BOOT_PARTITION_GUID.
package target

//go:generate go run gen.go -env-file ../../build.env -out zz_generated_target.go

import (
	efi "github.com/canonical/go-efilib"
)

// GUID returns the unique partition GUID of the partition to boot from.
func GUID() efi.GUID {
	return compiled
}

// String returns the GUID as written in the build configuration.
func String() string {
	return literal
}
