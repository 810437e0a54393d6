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

package devicepath

import (
	"bytes"
	"errors"
	"fmt"

	efi "github.com/canonical/go-efilib"
)

var (
	// ErrBufferFull is returned when a node does not fit in the remaining
	// capacity of a Builder.
	ErrBufferFull = errors.New("device path buffer is full")
	// ErrFinalized is returned when pushing to a finalized Builder.
	ErrFinalized = errors.New("device path is already finalized")
)

// Builder assembles a device path in a buffer of fixed capacity. The buffer
// is allocated once and never grows.
type Builder struct {
	buf       []byte
	nodes     int
	finalized bool
}

// NewBuilder returns a Builder holding at most capacity bytes, terminator
// included.
func NewBuilder(capacity int) *Builder {
	return &Builder{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Cap returns the capacity of the scratch buffer.
func (b *Builder) Cap() int {
	return cap(b.buf)
}

// NodeCount returns the number of nodes written so far.
func (b *Builder) NodeCount() int {
	return b.nodes
}

// PushRaw copies an already serialized node byte for byte.
func (b *Builder) PushRaw(n Node) error {
	if b.finalized {
		return ErrFinalized
	}
	if len(n) < headerSize || n.IsEndEntire() {
		return fmt.Errorf("%w: cannot push %d byte node", ErrMalformed, len(n))
	}
	return b.append(n)
}

// Push serializes a go-efilib node and appends it.
func (b *Builder) Push(n efi.DevicePathNode) error {
	if b.finalized {
		return ErrFinalized
	}
	var w bytes.Buffer
	if err := n.Write(&w); err != nil {
		return err
	}
	return b.PushRaw(w.Bytes())
}

// PushFile appends a FILEPATH media node naming path.
func (b *Builder) PushFile(path string) error {
	return b.Push(efi.FilePathDevicePathNode(path))
}

// Finalize appends the end node and returns the completed path. The Builder
// cannot be used afterwards.
func (b *Builder) Finalize() (Path, error) {
	if b.finalized {
		return nil, ErrFinalized
	}
	if err := b.append(End); err != nil {
		return nil, err
	}
	b.finalized = true
	return Path(b.buf), nil
}

func (b *Builder) append(n Node) error {
	if len(n) > cap(b.buf)-len(b.buf) {
		return fmt.Errorf("%w: %d byte node, %d of %d bytes used", ErrBufferFull, len(n), len(b.buf), cap(b.buf))
	}
	b.buf = append(b.buf, n...)
	b.nodes++
	return nil
}
