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

// Package emulator implements the firmware boot services the chainloader
// needs on top of a raw disk image, so a chainload can be rehearsed on a
// host before the binary is deployed.
package emulator

import (
	"debug/pe"
	"fmt"
	"os"
	"runtime"

	efi "github.com/canonical/go-efilib"
	efimbr "github.com/canonical/go-efilib/mbr"
	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/hashicorp/go-multierror"

	"github.com/partchain/partchain/pkg/devicepath"
	"github.com/partchain/partchain/pkg/firmware"
	"github.com/partchain/partchain/pkg/guid"
	"github.com/partchain/partchain/pkg/types"
	"github.com/partchain/partchain/pkg/utils"
)

const (
	// CurrentImage is the handle of the emulated chainloader itself
	CurrentImage firmware.ImageHandle = 0x100

	handleBase     = 0x10000
	imageBase      = 0x20000
	espMBRType     = 0xef
	activePartFlag = 0x80
)

var machines = map[string]uint16{
	"amd64": pe.IMAGE_FILE_MACHINE_AMD64,
	"386":   pe.IMAGE_FILE_MACHINE_I386,
	"arm64": pe.IMAGE_FILE_MACHINE_ARM64,
	"arm":   pe.IMAGE_FILE_MACHINE_ARMNT,
}

// Partition is a partition handle published by the emulated firmware
type Partition struct {
	Handle     firmware.Handle         `yaml:"handle"`
	Number     int                     `yaml:"number"`
	Name       string                  `yaml:"name,omitempty"`
	Start      uint64                  `yaml:"start"`
	Size       uint64                  `yaml:"size"`
	Info       *firmware.PartitionInfo `yaml:"-"`
	DevicePath devicepath.Path         `yaml:"-"`
}

// Image is an image loaded by LoadImage
type Image struct {
	Handle    firmware.ImageHandle `yaml:"handle"`
	Partition int                  `yaml:"partition"`
	Path      string               `yaml:"path"`
	Machine   uint16               `yaml:"machine"`
	Size      int                  `yaml:"size"`
	Policy    firmware.BootPolicy  `yaml:"-"`
	Started   bool                 `yaml:"started"`
}

// Firmware serves boot services from a disk image opened read only
type Firmware struct {
	logger      types.Logger
	disk        *disk.Disk
	machine     uint16
	startStatus firmware.Status
	partitions  []*Partition
	images      map[firmware.ImageHandle]*Image
	order       []firmware.ImageHandle
}

type Option func(f *Firmware)

func WithLogger(logger types.Logger) Option {
	return func(f *Firmware) {
		f.logger = logger
	}
}

// WithStartStatus sets the status every started image exits with
func WithStartStatus(status firmware.Status) Option {
	return func(f *Firmware) {
		f.startStatus = status
	}
}

// WithMachine sets the PE machine type images must be built for
func WithMachine(machine uint16) Option {
	return func(f *Firmware) {
		f.machine = machine
	}
}

// Open reads the partition table of the image at path and publishes one
// handle per partition.
func Open(path string, opts ...Option) (fw *Firmware, err error) {
	f := &Firmware{
		logger:  types.NewNullLogger(),
		machine: machines[runtime.GOARCH],
		images:  map[firmware.ImageHandle]*Image{},
	}
	for _, o := range opts {
		o(f)
	}

	cleanup := utils.NewCleanStack()
	defer func() {
		err = cleanup.Cleanup(err)
		if err != nil {
			fw = nil
		}
	}()

	d, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("opening disk image %s: %w", path, err)
	}
	f.disk = d
	cleanup.PushErrorOnly(f.Close)

	table, err := d.GetPartitionTable()
	if err != nil {
		return nil, fmt.Errorf("reading partition table of %s: %w", path, err)
	}

	var errs error
	switch t := table.(type) {
	case *gpt.Table:
		errs = f.publishGPT(t)
	case *mbr.Table:
		var signature uint32
		signature, err = mbrSignature(path)
		if err != nil {
			return nil, err
		}
		errs = f.publishMBR(t, signature)
	default:
		return nil, fmt.Errorf("unsupported partition table type %s", table.Type())
	}
	if errs != nil {
		f.logger.Warnf("Some partitions of %s are not published: %v", path, errs)
	}
	f.logger.Debugf("Published %d partition handles for %s", len(f.partitions), path)
	return f, nil
}

func (f *Firmware) publishGPT(t *gpt.Table) error {
	var errs error
	for i, p := range t.Partitions {
		if p == nil || p.Start == 0 {
			continue
		}
		number := i + 1
		typeGUID, err := guid.Parse(string(p.Type))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("partition %d: %w", number, err))
			continue
		}
		if typeGUID == (efi.GUID{}) {
			continue
		}
		unique, err := guid.Parse(p.GUID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("partition %d: %w", number, err))
			continue
		}
		size := p.End - p.Start + 1
		node := &efi.HardDriveDevicePathNode{
			PartitionNumber: uint32(number),
			PartitionStart:  p.Start,
			PartitionSize:   size,
			Signature:       efi.GUIDHardDriveSignature(unique),
			MBRType:         efi.GPT,
		}
		info := &firmware.PartitionInfo{
			Revision: firmware.PartitionInfoRevision,
			Type:     firmware.PartitionTypeGPT,
			System:   p.Type == gpt.EFISystemPartition,
			GPT: &efi.PartitionEntry{
				PartitionTypeGUID:   typeGUID,
				UniquePartitionGUID: unique,
				StartingLBA:         efi.LBA(p.Start),
				EndingLBA:           efi.LBA(p.End),
				Attributes:          p.Attributes,
				PartitionName:       p.Name,
			},
		}
		if err = f.publish(number, p.Name, p.Start, size, info, node); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func (f *Firmware) publishMBR(t *mbr.Table, signature uint32) error {
	var errs error
	for i, p := range t.Partitions {
		if p == nil || p.Type == mbr.Empty || p.Size == 0 {
			continue
		}
		number := i + 1
		entry := &efimbr.PartitionEntry{
			Type:            uint8(p.Type),
			StartingLBA:     p.Start,
			NumberOfSectors: p.Size,
		}
		if p.Bootable {
			entry.BootIndicator = activePartFlag
		}
		node := &efi.HardDriveDevicePathNode{
			PartitionNumber: uint32(number),
			PartitionStart:  uint64(p.Start),
			PartitionSize:   uint64(p.Size),
			Signature:       efi.MBRHardDriveSignature(signature),
			MBRType:         efi.LegacyMBR,
		}
		info := &firmware.PartitionInfo{
			Revision: firmware.PartitionInfoRevision,
			Type:     firmware.PartitionTypeMBR,
			System:   uint8(p.Type) == espMBRType,
			MBR:      entry,
		}
		if err := f.publish(number, "", uint64(p.Start), uint64(p.Size), info, node); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs
}

func (f *Firmware) publish(number int, name string, start, size uint64, info *firmware.PartitionInfo, hd *efi.HardDriveDevicePathNode) error {
	path, err := efi.DevicePath{
		&efi.ACPIDevicePathNode{HID: efi.EISAID(0x0a0341d0), UID: 0},
		&efi.PCIDevicePathNode{Function: 2, Device: 0x1f},
		&efi.SATADevicePathNode{HBAPortNumber: 0, PortMultiplierPortNumber: 0xffff, LUN: 0},
		hd,
	}.Bytes()
	if err != nil {
		return fmt.Errorf("partition %d: encoding device path: %w", number, err)
	}
	f.partitions = append(f.partitions, &Partition{
		Handle:     firmware.Handle(handleBase + number<<8),
		Number:     number,
		Name:       name,
		Start:      start,
		Size:       size,
		Info:       info,
		DevicePath: path,
	})
	return nil
}

// mbrSignature reads the unique disk signature diskfs does not expose
func mbrSignature(path string) (uint32, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	record, err := efimbr.ReadRecord(file)
	if err != nil {
		return 0, fmt.Errorf("reading master boot record of %s: %w", path, err)
	}
	return record.UniqueSignature, nil
}

// Close releases the disk image
func (f *Firmware) Close() error {
	if f.disk == nil {
		return nil
	}
	err := f.disk.Close()
	f.disk = nil
	return err
}

// Partitions returns the published partition handles in table order
func (f *Firmware) Partitions() []*Partition {
	return f.partitions
}

// Images returns the loaded images in load order
func (f *Firmware) Images() []*Image {
	out := make([]*Image, 0, len(f.order))
	for _, h := range f.order {
		out = append(out, f.images[h])
	}
	return out
}

func (f *Firmware) partition(h firmware.Handle) *Partition {
	for _, p := range f.partitions {
		if p.Handle == h {
			return p
		}
	}
	return nil
}

func (f *Firmware) CurrentImage() firmware.ImageHandle {
	return CurrentImage
}

func (f *Firmware) LocateHandleBuffer(protocol efi.GUID) ([]firmware.Handle, error) {
	if protocol != firmware.PartitionInfoProtocol && protocol != firmware.DevicePathProtocol {
		return nil, firmware.NotFound
	}
	if len(f.partitions) == 0 {
		return nil, firmware.NotFound
	}
	handles := make([]firmware.Handle, 0, len(f.partitions))
	for _, p := range f.partitions {
		handles = append(handles, p.Handle)
	}
	return handles, nil
}

func (f *Firmware) OpenProtocol(h firmware.Handle, protocol efi.GUID) ([]byte, error) {
	p := f.partition(h)
	if p == nil {
		return nil, firmware.InvalidParameter
	}
	switch protocol {
	case firmware.PartitionInfoProtocol:
		raw, err := p.Info.Bytes()
		if err != nil {
			return nil, firmware.Wrap(firmware.DeviceError, "encode partition info", err)
		}
		return raw, nil
	case firmware.DevicePathProtocol:
		return append([]byte(nil), p.DevicePath...), nil
	}
	return nil, firmware.Unsupported
}
