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

package firmware

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	efi "github.com/canonical/go-efilib"
	"github.com/canonical/go-efilib/mbr"
)

const (
	// PartitionInfoRevision is EFI_PARTITION_INFO_PROTOCOL_REVISION.
	PartitionInfoRevision = 0x00010000

	partitionInfoHeaderSize = 16
	partitionInfoUnionSize  = 128
	// PartitionInfoSize is the packed size of EFI_PARTITION_INFO_PROTOCOL.
	PartitionInfoSize = partitionInfoHeaderSize + partitionInfoUnionSize

	mbrEntrySize = 16
)

// PartitionType is the partition table format tag of a partition.
type PartitionType uint32

const (
	PartitionTypeOther PartitionType = 0
	PartitionTypeMBR   PartitionType = 1
	PartitionTypeGPT   PartitionType = 2
)

func (t PartitionType) String() string {
	switch t {
	case PartitionTypeOther:
		return "Other"
	case PartitionTypeMBR:
		return "MBR"
	case PartitionTypeGPT:
		return "GPT"
	}
	return fmt.Sprintf("Unknown(%d)", uint32(t))
}

var (
	// ErrShortDescriptor is returned when the protocol snapshot does not
	// even hold the fixed header.
	ErrShortDescriptor = errors.New("partition info descriptor is truncated")
	// ErrNoEntry is returned when the descriptor carries no usable table entry.
	ErrNoEntry = errors.New("partition info descriptor has no table entry")
)

type partitionInfoHeader struct {
	Revision uint32
	Type     uint32
	System   uint8
	Reserved [7]uint8
}

// PartitionInfo is an owned copy of EFI_PARTITION_INFO_PROTOCOL.
type PartitionInfo struct {
	Revision uint32
	Type     PartitionType
	System   bool // EFI system partition
	MBR      *mbr.PartitionEntry
	GPT      *efi.PartitionEntry
}

// ReadPartitionInfo decodes a protocol snapshot. The structure is packed, so
// it is first copied into a local buffer and every field is decoded from
// that copy instead of being read in place.
//
// A GPT or MBR descriptor whose table entry is truncated or unused is
// returned with a nil entry; use GPTEntry to tell the cases apart.
func ReadPartitionInfo(raw []byte) (*PartitionInfo, error) {
	var local [PartitionInfoSize]byte
	n := copy(local[:], raw)
	if n < partitionInfoHeaderSize {
		return nil, ErrShortDescriptor
	}

	var hdr partitionInfoHeader
	if err := binary.Read(bytes.NewReader(local[:partitionInfoHeaderSize]), binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	info := &PartitionInfo{
		Revision: hdr.Revision,
		Type:     PartitionType(hdr.Type),
		System:   hdr.System != 0,
	}
	union := local[partitionInfoHeaderSize:n]

	switch info.Type {
	case PartitionTypeGPT:
		if len(union) < partitionInfoUnionSize {
			return info, nil
		}
		entry, err := efi.ReadPartitionEntry(bytes.NewReader(union))
		if err != nil {
			return info, nil
		}
		if entry.PartitionTypeGUID == (efi.GUID{}) {
			return info, nil
		}
		info.GPT = entry
	case PartitionTypeMBR:
		if len(union) < mbrEntrySize {
			return info, nil
		}
		var entry mbr.PartitionEntry
		if err := binary.Read(bytes.NewReader(union[:mbrEntrySize]), binary.LittleEndian, &entry); err != nil {
			return info, nil
		}
		info.MBR = &entry
	}
	return info, nil
}

// GPTEntry returns the embedded GPT entry. It fails with ErrNoEntry if the
// descriptor is not GPT or its entry could not be read.
func (p *PartitionInfo) GPTEntry() (*efi.PartitionEntry, error) {
	if p.Type != PartitionTypeGPT || p.GPT == nil {
		return nil, ErrNoEntry
	}
	return p.GPT, nil
}

// Bytes serializes the descriptor in its packed firmware layout.
func (p *PartitionInfo) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	hdr := partitionInfoHeader{Revision: p.Revision, Type: uint32(p.Type)}
	if p.System {
		hdr.System = 1
	}
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}

	switch {
	case p.GPT != nil:
		if err := p.GPT.Write(&buf); err != nil {
			return nil, err
		}
	case p.MBR != nil:
		if err := binary.Write(&buf, binary.LittleEndian, p.MBR); err != nil {
			return nil, err
		}
	}
	if pad := PartitionInfoSize - buf.Len(); pad > 0 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes(), nil
}
