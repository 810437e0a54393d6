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
	"fmt"
	"strings"

	efi "github.com/canonical/go-efilib"

	"github.com/partchain/partchain/pkg/firmware"
)

// FakeBootServices is an in-memory firmware. Every handle carries a map of
// protocol snapshots and may be told to fail opening any of them.
type FakeBootServices struct {
	calls [][]string

	Image        firmware.ImageHandle
	Handles      []firmware.Handle
	LocateError  error
	protocols    map[firmware.Handle]map[efi.GUID][]byte
	protocolErrs map[firmware.Handle]map[efi.GUID]error

	LoadedImage firmware.ImageHandle
	LoadError   error
	StartError  error

	LoadedPaths [][]byte
	Policies    []firmware.BootPolicy
	Started     []firmware.ImageHandle
}

func NewFakeBootServices() *FakeBootServices {
	return &FakeBootServices{
		calls:        [][]string{},
		Image:        0x1000,
		LoadedImage:  0x2000,
		protocols:    map[firmware.Handle]map[efi.GUID][]byte{},
		protocolErrs: map[firmware.Handle]map[efi.GUID]error{},
	}
}

// AddHandle registers h with the given protocol snapshots.
func (f *FakeBootServices) AddHandle(h firmware.Handle, protocols map[efi.GUID][]byte) {
	f.Handles = append(f.Handles, h)
	if f.protocols[h] == nil {
		f.protocols[h] = map[efi.GUID][]byte{}
	}
	for guid, data := range protocols {
		f.protocols[h][guid] = data
	}
}

// AddPartition registers h with a partition info and a device path protocol.
// A nil path leaves the device path protocol out.
func (f *FakeBootServices) AddPartition(h firmware.Handle, info *firmware.PartitionInfo, path []byte) error {
	raw, err := info.Bytes()
	if err != nil {
		return err
	}
	protocols := map[efi.GUID][]byte{firmware.PartitionInfoProtocol: raw}
	if path != nil {
		protocols[firmware.DevicePathProtocol] = path
	}
	f.AddHandle(h, protocols)
	return nil
}

// AddGPTPartition registers a GPT partition with the given unique GUID.
func (f *FakeBootServices) AddGPTPartition(h firmware.Handle, unique efi.GUID, path []byte) error {
	return f.AddPartition(h, &firmware.PartitionInfo{
		Revision: firmware.PartitionInfoRevision,
		Type:     firmware.PartitionTypeGPT,
		GPT: &efi.PartitionEntry{
			// Microsoft basic data
			PartitionTypeGUID:   efi.MakeGUID(0xebd0a0a2, 0xb9e5, 0x4433, 0x87c0, [...]uint8{0x68, 0xb6, 0xb7, 0x26, 0x99, 0xc7}),
			UniquePartitionGUID: unique,
			StartingLBA:         2048,
			EndingLBA:           206847,
		},
	}, path)
}

// SetProtocolError makes opening protocol on h fail with err.
func (f *FakeBootServices) SetProtocolError(h firmware.Handle, protocol efi.GUID, err error) {
	if f.protocolErrs[h] == nil {
		f.protocolErrs[h] = map[efi.GUID]error{}
	}
	f.protocolErrs[h][protocol] = err
}

func (f *FakeBootServices) CurrentImage() firmware.ImageHandle {
	return f.Image
}

func (f *FakeBootServices) LocateHandleBuffer(protocol efi.GUID) ([]firmware.Handle, error) {
	f.record("LocateHandleBuffer", protocol.String())
	if f.LocateError != nil {
		return nil, f.LocateError
	}
	var out []firmware.Handle
	for _, h := range f.Handles {
		if _, ok := f.protocols[h][protocol]; ok {
			out = append(out, h)
			continue
		}
		if _, ok := f.protocolErrs[h][protocol]; ok {
			out = append(out, h)
		}
	}
	if len(out) == 0 {
		return nil, firmware.NotFound
	}
	return out, nil
}

func (f *FakeBootServices) OpenProtocol(h firmware.Handle, protocol efi.GUID) ([]byte, error) {
	f.record("OpenProtocol", fmt.Sprintf("%#x", uintptr(h)), protocol.String())
	if err, ok := f.protocolErrs[h][protocol]; ok {
		return nil, err
	}
	data, ok := f.protocols[h][protocol]
	if !ok {
		return nil, firmware.Unsupported
	}
	// hand out a copy, the caller does not own firmware memory
	return append([]byte(nil), data...), nil
}

func (f *FakeBootServices) LoadImage(policy firmware.BootPolicy, parent firmware.ImageHandle, path []byte) (firmware.ImageHandle, error) {
	f.record("LoadImage", policy.String(), fmt.Sprintf("%#x", uintptr(parent)))
	f.LoadedPaths = append(f.LoadedPaths, append([]byte(nil), path...))
	f.Policies = append(f.Policies, policy)
	if f.LoadError != nil {
		return 0, f.LoadError
	}
	return f.LoadedImage, nil
}

func (f *FakeBootServices) StartImage(image firmware.ImageHandle) error {
	f.record("StartImage", fmt.Sprintf("%#x", uintptr(image)))
	f.Started = append(f.Started, image)
	return f.StartError
}

func (f *FakeBootServices) record(call string, args ...string) {
	f.calls = append(f.calls, append([]string{call}, args...))
}

// ClearCalls forgets every recorded call.
func (f *FakeBootServices) ClearCalls() {
	f.calls = [][]string{}
}

// GetCalls returns the recorded calls, each as name followed by arguments.
func (f FakeBootServices) GetCalls() [][]string {
	return f.calls
}

// WasCalled reports whether the named service was called at least once.
func (f FakeBootServices) WasCalled(call string) bool {
	for _, c := range f.calls {
		if c[0] == call {
			return true
		}
	}
	return false
}

// CallsMatch matches the recorded call names in order. Arguments are
// compared by prefix, so a partial expectation is enough.
func (f FakeBootServices) CallsMatch(expected [][]string) error {
	if len(expected) != len(f.calls) {
		return fmt.Errorf("number of calls mismatch, expected %d calls but got %d", len(expected), len(f.calls))
	}
	for i, call := range expected {
		want := strings.Join(call, " ")
		got := strings.Join(f.calls[i], " ")
		if !strings.HasPrefix(got, want) {
			return fmt.Errorf("expected call: '%s.*' got: '%s'", want, got)
		}
	}
	return nil
}
