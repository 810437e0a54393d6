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

// Package devicepath copies and extends serialized EFI device paths inside a
// fixed size buffer.
package devicepath

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	efi "github.com/canonical/go-efilib"
)

const (
	headerSize = 4

	endType          = 0x7f
	endEntireSubType = 0xff
)

var (
	// ErrMalformed is returned for a node whose length field is impossible.
	ErrMalformed = errors.New("malformed device path node")
	// ErrUnterminated is returned when a path has no end node.
	ErrUnterminated = errors.New("device path is not terminated")
)

// End is the END_ENTIRE_DEVICE_PATH node.
var End = Node{endType, endEntireSubType, headerSize, 0}

// Node is one serialized EFI_DEVICE_PATH_PROTOCOL node, header included.
type Node []byte

// Type returns the node type.
func (n Node) Type() efi.DevicePathNodeType {
	return efi.DevicePathNodeType(n[0])
}

// SubType returns the node sub-type.
func (n Node) SubType() efi.DevicePathNodeSubType {
	return efi.DevicePathNodeSubType(n[1])
}

// IsEnd reports whether n terminates an instance or the whole path.
func (n Node) IsEnd() bool {
	return n[0] == endType
}

// IsEndEntire reports whether n terminates the whole path.
func (n Node) IsEndEntire() bool {
	return n[0] == endType && n[1] == endEntireSubType
}

func (n Node) String() string {
	return fmt.Sprintf("%s/%#02x (%d bytes)", n.Type(), uint8(n.SubType()), len(n))
}

// Nodes splits a serialized path into nodes up to, and excluding, the End
// Entire node. End Instance nodes are kept so multi-instance paths survive a
// copy. The returned nodes alias src.
func Nodes(src []byte) ([]Node, error) {
	var out []Node
	for off := 0; ; {
		if len(src)-off < headerSize {
			return nil, ErrUnterminated
		}
		length := int(binary.LittleEndian.Uint16(src[off+2:]))
		if length < headerSize || off+length > len(src) {
			return nil, fmt.Errorf("%w: node %d at offset %d has length %d", ErrMalformed, len(out), off, length)
		}
		node := Node(src[off : off+length])
		if node.IsEndEntire() {
			return out, nil
		}
		out = append(out, node)
		off += length
	}
}

// Path is a complete serialized device path ending in exactly one End node.
type Path []byte

// Nodes returns every node of p including the terminator.
func (p Path) Nodes() ([]Node, error) {
	nodes, err := Nodes(p)
	if err != nil {
		return nil, err
	}
	off := 0
	for _, n := range nodes {
		off += len(n)
	}
	return append(nodes, Node(p[off:off+headerSize])), nil
}

// Decode parses p with go-efilib.
func (p Path) Decode() (efi.DevicePath, error) {
	return efi.ReadDevicePath(bytes.NewReader(p))
}

// String renders p in the UEFI text form, falling back to hex when a node
// cannot be decoded.
func (p Path) String() string {
	dp, err := p.Decode()
	if err != nil {
		return fmt.Sprintf("%x", []byte(p))
	}
	return dp.String()
}
