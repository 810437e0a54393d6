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

package mocks

import (
	"io"
	"strings"

	efi "github.com/canonical/go-efilib"
	efi_linux "github.com/canonical/go-efilib/linux"
	"github.com/twpayne/go-vfs/v4"

	"github.com/partchain/partchain/pkg/constants"
)

type mockEFIVariable struct {
	data  []byte
	attrs efi.VariableAttributes
}

// MockEFIVariables implements an in-memory variable store. Device paths for
// files are resolved against fs and reduced to a single file node relative
// to the ESP mount point.
type MockEFIVariables struct {
	store         map[efi.VariableDescriptor]mockEFIVariable
	fs            vfs.FS
	loadOptionErr error
	listErr       error
	setErr        error
}

func NewMockEFIVariables() *MockEFIVariables {
	return &MockEFIVariables{
		store: make(map[efi.VariableDescriptor]mockEFIVariable),
		fs:    vfs.OSFS,
	}
}

func (m *MockEFIVariables) WithFs(fs vfs.FS) *MockEFIVariables {
	m.fs = fs
	return m
}

func (m *MockEFIVariables) WithLoadOptionError(err error) *MockEFIVariables {
	m.loadOptionErr = err
	return m
}

// WithListError makes the store look unsupported.
func (m *MockEFIVariables) WithListError(err error) *MockEFIVariables {
	m.listErr = err
	return m
}

func (m *MockEFIVariables) WithSetError(err error) *MockEFIVariables {
	m.setErr = err
	return m
}

func (m MockEFIVariables) DelVariable(guid efi.GUID, name string) error {
	delete(m.store, efi.VariableDescriptor{Name: name, GUID: guid})
	return nil
}

// ListVariables implements EFIVariables
func (m MockEFIVariables) ListVariables() (out []efi.VariableDescriptor, err error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	for k := range m.store {
		out = append(out, k)
	}
	return out, nil
}

// GetVariable implements EFIVariables
func (m MockEFIVariables) GetVariable(guid efi.GUID, name string) (data []byte, attrs efi.VariableAttributes, err error) {
	out, ok := m.store[efi.VariableDescriptor{Name: name, GUID: guid}]
	if !ok {
		return nil, 0, efi.ErrVarNotExist
	}
	return out.data, out.attrs, nil
}

// SetVariable implements EFIVariables
func (m MockEFIVariables) SetVariable(guid efi.GUID, name string, data []byte, attrs efi.VariableAttributes) error {
	if m.setErr != nil {
		return m.setErr
	}
	if len(data) == 0 {
		delete(m.store, efi.VariableDescriptor{Name: name, GUID: guid})
	} else {
		m.store[efi.VariableDescriptor{Name: name, GUID: guid}] = mockEFIVariable{data, attrs}
	}
	return nil
}

func (m MockEFIVariables) ReadLoadOption(r io.Reader) (out *efi.LoadOption, err error) {
	if m.loadOptionErr != nil {
		return nil, m.loadOptionErr
	}
	return efi.ReadLoadOption(r)
}

func (m MockEFIVariables) NewFileDevicePath(fpath string, _ efi_linux.FilePathToDevicePathMode) (efi.DevicePath, error) {
	file, err := m.fs.Open(fpath)
	if err != nil {
		return nil, err
	}
	file.Close()

	fpath = strings.TrimPrefix(fpath, constants.EfiMountPoint)

	return efi.DevicePath{
		efi.NewFilePathDevicePathNode(fpath),
	}, nil
}
