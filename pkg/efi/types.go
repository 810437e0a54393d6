// nolint:goheader

// This file is part of nullboot
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

package efi

import (
	"io"

	efi "github.com/canonical/go-efilib"
	efi_linux "github.com/canonical/go-efilib/linux"

	"github.com/partchain/partchain/pkg/types"
)

// Variables abstracts away the host-specific bits of the efivars module
type Variables = types.EFIVariables

// RealEFIVariables reads and writes efivarfs through the default variable
// context of go-efilib.
type RealEFIVariables struct{}

func (v RealEFIVariables) DelVariable(guid efi.GUID, name string) error {
	_, attrs, err := v.GetVariable(guid, name)
	if err != nil {
		return err
	}
	return v.SetVariable(guid, name, nil, attrs)
}

func (v RealEFIVariables) NewFileDevicePath(filepath string, mode efi_linux.FilePathToDevicePathMode) (efi.DevicePath, error) {
	return efi_linux.FilePathToDevicePath(filepath, mode)
}

// ListVariables proxy
func (RealEFIVariables) ListVariables() ([]efi.VariableDescriptor, error) {
	return efi.ListVariables(efi.DefaultVarContext)
}

// GetVariable proxy
func (RealEFIVariables) GetVariable(guid efi.GUID, name string) (data []byte, attrs efi.VariableAttributes, err error) {
	return efi.ReadVariable(efi.DefaultVarContext, name, guid)
}

// SetVariable proxy
func (RealEFIVariables) SetVariable(guid efi.GUID, name string, data []byte, attrs efi.VariableAttributes) error {
	return efi.WriteVariable(efi.DefaultVarContext, name, guid, attrs, data)
}

// ReadLoadOption proxy
func (RealEFIVariables) ReadLoadOption(r io.Reader) (out *efi.LoadOption, err error) {
	return efi.ReadLoadOption(r)
}

// BootManager manages the Boot#### entries that point at the chainloader
// binary and their place in BootOrder.
type BootManager struct {
	logger         types.Logger
	efivars        Variables
	entries        map[int]BootEntryVariable
	bootOrder      []int
	bootOrderAttrs efi.VariableAttributes
}

// BootEntryVariable is a decoded Boot#### variable.
type BootEntryVariable struct {
	BootNumber int                    `yaml:"number"`
	Data       []byte                 `yaml:"-"`
	Attributes efi.VariableAttributes `yaml:"-"`
	LoadOption *efi.LoadOption        `yaml:"-"`
}

// Name returns the variable name, e.g. Boot0004.
func (v BootEntryVariable) Name() string {
	return bootVariableName(v.BootNumber)
}

// Description returns the load option description or an empty string.
func (v BootEntryVariable) Description() string {
	if v.LoadOption == nil {
		return ""
	}
	return v.LoadOption.Description
}

// BootEntry describes the load option to register for the chainloader.
// Filename is relative to the ESP mount point given at registration.
type BootEntry struct {
	Filename string
	Label    string
	Options  string
}
