/*
Copyright © 2022 - 2025 SUSE LLC

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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jaypipes/ghw/pkg/block"
	"github.com/jaypipes/ghw/pkg/context"
	"github.com/jaypipes/ghw/pkg/linuxpath"
)

const ghwSectorSize = 512

// GhwMock builds a fake sysfs, udev database and mount table under a temporary
// root and points ghw at it through GHW_CHROOT. Disks are added with AddDisk
// and materialized by CreateDevices; partitions carry their PARTUUID in UUID,
// their GPT name in Label and their size in SizeBytes.
type GhwMock struct {
	chroot string
	paths  *linuxpath.Paths
	disks  []block.Disk
	mounts []string
}

// AddDisk adds a disk to GhwMock
func (g *GhwMock) AddDisk(disk block.Disk) {
	g.disks = append(g.disks, disk)
}

// CreateDevices will create a new context and paths for ghw using a temporary dir as base, then set the env var GHW_CHROOT so the
// ghw library picks that up and then iterate over the disks and partitions and create the necessary files
func (g *GhwMock) CreateDevices() {
	d, _ := os.MkdirTemp("", "ghwmock")
	g.chroot = d
	ctx := context.New()
	ctx.Chroot = d
	g.paths = linuxpath.New(ctx)
	_ = os.Setenv("GHW_CHROOT", g.chroot)
	_ = os.MkdirAll(g.paths.SysBlock, 0755)
	_ = os.MkdirAll(g.paths.RunUdevData, 0755)
	procDir, _ := filepath.Split(g.paths.ProcMounts)
	_ = os.MkdirAll(procDir, 0755)

	for indexDisk, disk := range g.disks {
		diskPath := filepath.Join(g.paths.SysBlock, disk.Name)
		_ = os.Mkdir(diskPath, 0755)
		_ = os.WriteFile(filepath.Join(diskPath, "size"), []byte(fmt.Sprintf("%d\n", disk.SizeBytes/ghwSectorSize)), 0644)
		for indexPart, partition := range disk.Partitions {
			partPath := filepath.Join(diskPath, partition.Name)
			devNo := fmt.Sprintf("%d:6%d", indexDisk, indexPart)
			_ = os.Mkdir(partPath, 0755)
			_ = os.WriteFile(filepath.Join(partPath, "dev"), []byte(devNo+"\n"), 0644)
			_ = os.WriteFile(filepath.Join(partPath, "size"), []byte(fmt.Sprintf("%d\n", partition.SizeBytes/ghwSectorSize)), 0644)

			// udev database entry for the partition
			data := []string{fmt.Sprintf("E:ID_FS_LABEL=%s\n", partition.FilesystemLabel)}
			if partition.Type != "" {
				data = append(data, fmt.Sprintf("E:ID_FS_TYPE=%s\n", partition.Type))
			}
			if partition.UUID != "" {
				data = append(data, fmt.Sprintf("E:ID_PART_ENTRY_UUID=%s\n", partition.UUID))
			}
			if partition.Label != "" {
				data = append(data, fmt.Sprintf("E:ID_PART_ENTRY_NAME=%s\n", partition.Label))
			}
			_ = os.WriteFile(filepath.Join(g.paths.RunUdevData, "b"+devNo), []byte(strings.Join(data, "")), 0644)

			if partition.MountPoint != "" {
				fsType := partition.Type
				if fsType == "" {
					fsType = "vfat"
				}
				g.mounts = append(
					g.mounts,
					fmt.Sprintf("%s %s %s ro,relatime 0 0\n", filepath.Join("/dev", partition.Name), partition.MountPoint, fsType))
			}
		}
	}
	_ = os.WriteFile(g.paths.ProcMounts, []byte(strings.Join(g.mounts, "")), 0644)
}

// Clean will remove the chroot dir and unset the env var
func (g *GhwMock) Clean() {
	_ = os.Unsetenv("GHW_CHROOT")
	_ = os.RemoveAll(g.chroot)
	g.mounts = nil
}
