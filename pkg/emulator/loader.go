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

package emulator

import (
	"bytes"
	"debug/pe"
	"io"
	"os"
	"strings"

	efi "github.com/canonical/go-efilib"

	"github.com/partchain/partchain/pkg/constants"
	"github.com/partchain/partchain/pkg/devicepath"
	"github.com/partchain/partchain/pkg/firmware"
)

// EFI subsystems accepted by LoadImage
var subsystems = map[uint16]bool{
	pe.IMAGE_SUBSYSTEM_EFI_APPLICATION:         true,
	pe.IMAGE_SUBSYSTEM_EFI_BOOT_SERVICE_DRIVER: true,
	pe.IMAGE_SUBSYSTEM_EFI_RUNTIME_DRIVER:      true,
}

// LoadImage resolves a HD(...)/File(...) device path against the disk image.
// With ExactMatch only the named file is tried; BootSelection falls back to
// the removable media default file of the partition.
func (f *Firmware) LoadImage(policy firmware.BootPolicy, parent firmware.ImageHandle, path []byte) (firmware.ImageHandle, error) {
	if parent != CurrentImage {
		if _, ok := f.images[parent]; !ok {
			return 0, firmware.Errorf(firmware.InvalidParameter, "unknown parent image %#x", uintptr(parent))
		}
	}

	p, file, err := f.resolve(devicepath.Path(path))
	if err != nil {
		return 0, err
	}

	candidates := []string{file}
	if policy == firmware.BootSelection {
		if fallback, ok := constants.GetRemovableMediaPaths()[f.machine]; ok && !strings.EqualFold(fallback, file) {
			candidates = append(candidates, fallback)
		}
	}

	var data []byte
	var loaded string
	for _, c := range candidates {
		data, err = f.readFile(p, c)
		if err == nil {
			loaded = c
			break
		}
		f.logger.Debugf("Cannot read %s on partition %d: %v", c, p.Number, err)
	}
	if err != nil {
		return 0, err
	}

	machine, err := f.checkImage(data)
	if err != nil {
		return 0, err
	}

	h := imageBase + firmware.ImageHandle(len(f.order)+1)<<4
	f.images[h] = &Image{
		Handle:    h,
		Partition: p.Number,
		Path:      loaded,
		Machine:   machine,
		Size:      len(data),
		Policy:    policy,
	}
	f.order = append(f.order, h)
	f.logger.Infof("Loaded %s from partition %d as image %#x", loaded, p.Number, uintptr(h))
	return h, nil
}

// StartImage marks the image started and returns the configured exit status
func (f *Firmware) StartImage(h firmware.ImageHandle) error {
	img, ok := f.images[h]
	if !ok {
		return firmware.Errorf(firmware.InvalidParameter, "unknown image %#x", uintptr(h))
	}
	if img.Started {
		return firmware.Errorf(firmware.AlreadyStarted, "image %#x", uintptr(h))
	}
	img.Started = true
	f.logger.Infof("Started %s, exit status %s", img.Path, f.startStatus)
	if f.startStatus.IsError() {
		return firmware.Errorf(f.startStatus, "image %s exited", img.Path)
	}
	return nil
}

// resolve finds the partition and file named by a device path. The path must
// begin with the full device path of a published partition.
func (f *Firmware) resolve(path devicepath.Path) (*Partition, string, error) {
	nodes, err := path.Decode()
	if err != nil {
		return nil, "", firmware.Wrap(firmware.InvalidParameter, "decode device path", err)
	}

	var hd *efi.HardDriveDevicePathNode
	var file strings.Builder
	for _, n := range nodes {
		switch node := n.(type) {
		case *efi.HardDriveDevicePathNode:
			hd = node
		case efi.FilePathDevicePathNode:
			name := string(node)
			if file.Len() > 0 && !strings.HasPrefix(name, `\`) {
				file.WriteString(`\`)
			}
			file.WriteString(name)
		}
	}
	if hd == nil {
		return nil, "", firmware.Errorf(firmware.NotFound, "no hard drive node in %s", path)
	}
	if file.Len() == 0 {
		return nil, "", firmware.Errorf(firmware.NotFound, "no file node in %s", path)
	}

	for _, p := range f.partitions {
		prefix := p.DevicePath[:len(p.DevicePath)-len(devicepath.End)]
		if uint32(p.Number) == hd.PartitionNumber && bytes.HasPrefix(path, prefix) {
			return p, file.String(), nil
		}
	}
	return nil, "", firmware.Errorf(firmware.NotFound, "no partition for %s", path)
}

func (f *Firmware) readFile(p *Partition, path string) ([]byte, error) {
	fs, err := f.disk.GetFilesystem(p.Number)
	if err != nil {
		return nil, firmware.Wrap(firmware.Unsupported, "no filesystem on partition", err)
	}
	file, err := fs.OpenFile(strings.ReplaceAll(path, `\`, "/"), os.O_RDONLY)
	if err != nil {
		return nil, firmware.Wrap(firmware.NotFound, path, err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, firmware.Wrap(firmware.DeviceError, path, err)
	}
	return data, nil
}

// checkImage accepts PE images built for the emulated machine
func (f *Firmware) checkImage(data []byte) (uint16, error) {
	img, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return 0, firmware.Wrap(firmware.LoadError, "parse PE image", err)
	}
	defer img.Close()

	if img.Machine != f.machine {
		return 0, firmware.Errorf(firmware.Unsupported, "image machine %#x, expected %#x", img.Machine, f.machine)
	}
	var subsystem uint16
	switch oh := img.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		subsystem = oh.Subsystem
	case *pe.OptionalHeader32:
		subsystem = oh.Subsystem
	default:
		return img.Machine, nil
	}
	if !subsystems[subsystem] {
		return 0, firmware.Errorf(firmware.Unsupported, "image subsystem %d is not an EFI subsystem", subsystem)
	}
	return img.Machine, nil
}
