/*
Copyright © 2022 - 2024 SUSE LLC

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

package utils

import (
	"fmt"
	"path/filepath"
	"sort"

	efi "github.com/canonical/go-efilib"
	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/block"
	ghwUtil "github.com/jaypipes/ghw/pkg/util"

	"github.com/partchain/partchain/pkg/guid"
)

// Partition is a host partition as seen by the kernel
type Partition struct {
	Path            string   `yaml:"path"`
	Disk            string   `yaml:"disk"`
	Name            string   `yaml:"name,omitempty"`
	FilesystemLabel string   `yaml:"label,omitempty"`
	FS              string   `yaml:"fs,omitempty"`
	Size            uint64   `yaml:"size"`
	MountPoint      string   `yaml:"mountpoint,omitempty"`
	PartUUID        string   `yaml:"partuuid,omitempty"`
	GUID            efi.GUID `yaml:"-"`
}

// HasGUID reports whether the PARTUUID is a GPT unique partition GUID
func (p Partition) HasGUID() bool {
	return p.GUID != (efi.GUID{})
}

type PartitionList []*Partition

// GetByGUID returns the partition whose unique partition GUID is g
func (pl PartitionList) GetByGUID(g efi.GUID) *Partition {
	for _, p := range pl {
		if p.HasGUID() && p.GUID == g {
			return p
		}
	}
	return nil
}

// ghwPartitionToInternalPartition transforms a block.Partition from ghw lib to our Partition type.
// MBR PARTUUIDs (disk signature plus index) are kept as text only.
func ghwPartitionToInternalPartition(partition *block.Partition, disk string) *Partition {
	p := &Partition{
		Path:            filepath.Join("/dev", partition.Name),
		Disk:            filepath.Join("/dev", disk),
		Name:            partition.Label,
		FilesystemLabel: partition.FilesystemLabel,
		FS:              partition.Type,
		Size:            partition.SizeBytes,
		MountPoint:      partition.MountPoint,
	}
	if partition.UUID != ghwUtil.UNKNOWN {
		p.PartUUID = partition.UUID
	}
	if len(p.PartUUID) == guid.Length {
		if g, err := guid.ParseUUID(p.PartUUID); err == nil {
			p.GUID = g
		}
	}
	if p.FS == ghwUtil.UNKNOWN {
		p.FS = ""
	}
	if p.Name == ghwUtil.UNKNOWN {
		p.Name = ""
	}
	return p
}

// GetAllPartitions returns all partitions in the system for all disks
func GetAllPartitions() (PartitionList, error) {
	var parts PartitionList
	blockDevices, err := block.New(ghw.WithDisableTools(), ghw.WithDisableWarnings())
	if err != nil {
		return nil, err
	}
	for _, d := range blockDevices.Disks {
		for _, part := range d.Partitions {
			parts = append(parts, ghwPartitionToInternalPartition(part, d.Name))
		}
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Path < parts[j].Path })

	return parts, nil
}

// GetPartitionByGUID finds the host partition with the given unique partition GUID
func GetPartitionByGUID(g efi.GUID) (*Partition, error) {
	parts, err := GetAllPartitions()
	if err != nil {
		return nil, err
	}
	if p := parts.GetByGUID(g); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("could not find partition with GUID %s", g)
}
