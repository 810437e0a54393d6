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

package mocks

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"os"
	"path"
	"strings"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/filesystem"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/docker/go-units"
)

const (
	sectorSize      = 512
	firstUsableLBA  = 2048
	defaultPartSize = 40 * units.MiB
)

// ImagePartition describes a partition of a test disk image. Files are keyed
// by firmware style paths and only written when Files is not empty, which
// also formats the partition as FAT32.
type ImagePartition struct {
	Name  string
	GUID  string
	Type  gpt.Type
	Size  int64
	Files map[string][]byte
}

// CreateGPTImage writes a sparse raw disk image at file with the given
// partitions laid out back to back.
func CreateGPTImage(file string, parts []ImagePartition) error {
	table := &gpt.Table{
		LogicalSectorSize:  sectorSize,
		PhysicalSectorSize: sectorSize,
		ProtectiveMBR:      true,
	}
	start := uint64(firstUsableLBA)
	for _, p := range parts {
		size := p.Size
		if size == 0 {
			size = defaultPartSize
		}
		sectors := uint64(size / sectorSize)
		table.Partitions = append(table.Partitions, &gpt.Partition{
			Start: start,
			End:   start + sectors - 1,
			Type:  p.Type,
			Name:  p.Name,
			GUID:  p.GUID,
		})
		start += sectors
	}

	d, err := createDisk(file, int64(start+firstUsableLBA)*sectorSize)
	if err != nil {
		return err
	}
	defer d.Close()

	if err = d.Partition(table); err != nil {
		return fmt.Errorf("partitioning %s: %w", file, err)
	}
	for i, p := range parts {
		if len(p.Files) == 0 {
			continue
		}
		if err = populate(d, i+1, p.Files); err != nil {
			return err
		}
	}
	return nil
}

// CreateMBRImage writes a raw disk image with a single bootable partition of
// the given MBR type.
func CreateMBRImage(file string, partType mbr.Type) error {
	sectors := uint32(defaultPartSize / sectorSize)
	table := &mbr.Table{
		LogicalSectorSize:  sectorSize,
		PhysicalSectorSize: sectorSize,
		Partitions: []*mbr.Partition{
			{Bootable: true, Type: partType, Start: firstUsableLBA, Size: sectors},
		},
	}
	d, err := createDisk(file, int64(firstUsableLBA+sectors)*sectorSize)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Partition(table)
}

func createDisk(file string, size int64) (*disk.Disk, error) {
	f, err := os.Create(file)
	if err != nil {
		return nil, err
	}
	if err = f.Truncate(size); err != nil {
		f.Close()
		return nil, err
	}
	if err = f.Close(); err != nil {
		return nil, err
	}
	return diskfs.Open(file, diskfs.WithOpenMode(diskfs.ReadWriteExclusive))
}

func populate(d *disk.Disk, number int, files map[string][]byte) error {
	fs, err := d.CreateFilesystem(disk.FilesystemSpec{Partition: number, FSType: filesystem.TypeFat32})
	if err != nil {
		return fmt.Errorf("formatting partition %d: %w", number, err)
	}
	for name, data := range files {
		name = strings.ReplaceAll(name, `\`, "/")
		if dir := path.Dir(name); dir != "/" {
			if err = fs.Mkdir(dir); err != nil {
				return err
			}
		}
		rw, err := fs.OpenFile(name, os.O_CREATE|os.O_RDWR)
		if err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		_, err = rw.Write(data)
		rw.Close()
		if err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// FakePEImage returns a minimal EFI application image for machine: a DOS
// stub, the COFF header and an optional header without sections.
func FakePEImage(machine uint16) []byte {
	return FakePEImageWithSubsystem(machine, pe.IMAGE_SUBSYSTEM_EFI_APPLICATION)
}

// FakePEImageWithSubsystem is FakePEImage with an arbitrary subsystem in the
// optional header.
func FakePEImageWithSubsystem(machine, subsystem uint16) []byte {
	var optional interface{}
	switch machine {
	case pe.IMAGE_FILE_MACHINE_I386, pe.IMAGE_FILE_MACHINE_ARMNT:
		optional = &pe.OptionalHeader32{
			Magic:               0x10b,
			Subsystem:           subsystem,
			SectionAlignment:    0x1000,
			FileAlignment:       0x200,
			NumberOfRvaAndSizes: 16,
		}
	default:
		optional = &pe.OptionalHeader64{
			Magic:               0x20b,
			Subsystem:           subsystem,
			SectionAlignment:    0x1000,
			FileAlignment:       0x200,
			NumberOfRvaAndSizes: 16,
		}
	}

	var buf bytes.Buffer
	dos := make([]byte, 0x40)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[0x3c:], 0x40)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")
	_ = binary.Write(&buf, binary.LittleEndian, pe.FileHeader{
		Machine:              machine,
		SizeOfOptionalHeader: uint16(binary.Size(optional)),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE,
	})
	_ = binary.Write(&buf, binary.LittleEndian, optional)
	return buf.Bytes()
}
