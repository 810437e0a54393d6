// nolint:goheader

// This file is part of nullboot
// Copyright 2021 Canonical Ltd.
// SPDX-License-Identifier: GPL-3.0-only

// Package efi registers the chainloader binary in the firmware boot menu.
package efi

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path"
	"sort"

	efi "github.com/canonical/go-efilib"
	efilinux "github.com/canonical/go-efilib/linux"

	"github.com/partchain/partchain/pkg/constants"
	"github.com/partchain/partchain/pkg/types"
)

const defaultAttrs = efi.AttributeNonVolatile | efi.AttributeBootserviceAccess | efi.AttributeRuntimeAccess

func bootVariableName(n int) string {
	return fmt.Sprintf("Boot%04X", n)
}

// NewBootManagerForVariables reads BootOrder and every Boot#### variable.
// Variables that do not decode as a load option are ignored.
func NewBootManagerForVariables(logger types.Logger, efivars Variables) (BootManager, error) {
	bm := BootManager{efivars: efivars, logger: logger}

	if !VariablesSupported(efivars) {
		return BootManager{}, fmt.Errorf("variables not supported")
	}

	bootOrderBytes, bootOrderAttrs, err := bm.efivars.GetVariable(efi.GlobalVariable, "BootOrder")
	if err != nil {
		bootOrderBytes = nil
		bootOrderAttrs = defaultAttrs
	}
	bm.bootOrder = make([]int, len(bootOrderBytes)/2)
	bm.bootOrderAttrs = bootOrderAttrs
	for i := 0; i+1 < len(bootOrderBytes); i += 2 {
		bm.bootOrder[i/2] = int(binary.LittleEndian.Uint16(bootOrderBytes[i : i+2]))
	}

	bm.entries = make(map[int]BootEntryVariable)
	names, err := GetVariableNames(bm.efivars, efi.GlobalVariable)
	if err != nil {
		return BootManager{}, fmt.Errorf("cannot obtain list of global variables: %v", err)
	}
	for _, name := range names {
		var entry BootEntryVariable
		if parsed, err := fmt.Sscanf(name, "Boot%04X", &entry.BootNumber); len(name) != 8 || parsed != 1 || err != nil {
			continue
		}
		entry.Data, entry.Attributes, err = bm.efivars.GetVariable(efi.GlobalVariable, name)
		if err != nil {
			return BootManager{}, fmt.Errorf("cannot read %s: %v", name, err)
		}
		entry.LoadOption, err = bm.efivars.ReadLoadOption(bytes.NewReader(entry.Data))
		if err != nil || entry.LoadOption == nil {
			logger.Debugf("Ignoring %s, not a load option: %v", name, err)
			continue
		}
		bm.entries[entry.BootNumber] = entry
	}

	return bm, nil
}

// Entries returns the known boot entries sorted by number.
func (bm *BootManager) Entries() []BootEntryVariable {
	out := make([]BootEntryVariable, 0, len(bm.entries))
	for _, e := range bm.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BootNumber < out[j].BootNumber })
	return out
}

// BootOrder returns the current boot order.
func (bm *BootManager) BootOrder() []int {
	return append([]int(nil), bm.bootOrder...)
}

// FindOrCreateEntry returns the number of an entry identical to entry, or
// writes a new Boot#### variable for it. relativeTo is the directory
// entry.Filename lives in.
func (bm *BootManager) FindOrCreateEntry(entry BootEntry, relativeTo string) (int, error) {
	dp, err := bm.efivars.NewFileDevicePath(path.Join(relativeTo, entry.Filename), efilinux.ShortFormPathHD)
	if err != nil {
		return -1, err
	}

	optionalData := new(bytes.Buffer)
	if entry.Options != "" {
		_ = binary.Write(optionalData, binary.LittleEndian, efi.ConvertUTF8ToUCS2(entry.Options+"\x00"))
	}

	loadoption := &efi.LoadOption{
		Attributes:   efi.LoadOptionActive,
		Description:  entry.Label,
		FilePath:     dp,
		OptionalData: optionalData.Bytes(),
	}
	data, err := loadoption.Bytes()
	if err != nil {
		return -1, fmt.Errorf("cannot encode load option: %v", err)
	}

	for _, existing := range bm.Entries() {
		if bytes.Equal(existing.Data, data) && existing.Attributes == defaultAttrs {
			bm.logger.Infof("Reusing boot entry %s", existing.Name())
			return existing.BootNumber, nil
		}
	}

	num, err := bm.NextFreeEntry()
	if err != nil {
		return -1, err
	}
	if err := bm.efivars.SetVariable(efi.GlobalVariable, bootVariableName(num), data, defaultAttrs); err != nil {
		return -1, err
	}
	bm.logger.Infof("Created boot entry %s for %s", bootVariableName(num), entry.Filename)
	bm.entries[num] = BootEntryVariable{
		BootNumber: num,
		Data:       data,
		Attributes: defaultAttrs,
		LoadOption: loadoption,
	}
	return num, nil
}

// NextFreeEntry returns the number of the next free Boot variable.
func (bm *BootManager) NextFreeEntry() (int, error) {
	for i := 0; i < constants.MaxBootEntries; i++ {
		if _, ok := bm.entries[i]; !ok {
			return i, nil
		}
	}
	return -1, fmt.Errorf("maximum number of boot entries exceeded")
}

// PrependAndSetBootOrder moves head to the front of BootOrder and commits it.
// Duplicates and numbers without a known entry are dropped.
func (bm *BootManager) PrependAndSetBootOrder(head []int) error {
	var newOrder []int
	seen := map[int]bool{}

	for _, num := range append(append([]int(nil), head...), bm.bootOrder...) {
		if _, ok := bm.entries[num]; !ok || seen[num] {
			continue
		}
		seen[num] = true
		newOrder = append(newOrder, num)
	}

	output := make([]byte, 2*len(newOrder))
	for i, num := range newOrder {
		binary.LittleEndian.PutUint16(output[2*i:], uint16(num))
	}

	if err := bm.efivars.SetVariable(efi.GlobalVariable, "BootOrder", output, bm.bootOrderAttrs); err != nil {
		return err
	}
	bm.bootOrder = newOrder
	return nil
}

// Register makes entry the first boot option, reusing an identical entry
// when there is one.
func (bm *BootManager) Register(entry BootEntry, relativeTo string) (int, error) {
	num, err := bm.FindOrCreateEntry(entry, relativeTo)
	if err != nil {
		return -1, err
	}
	if err = bm.PrependAndSetBootOrder([]int{num}); err != nil {
		return -1, err
	}
	return num, nil
}

// VariablesSupported indicates whether variables can be accessed.
func VariablesSupported(efiVars Variables) bool {
	_, err := efiVars.ListVariables()
	return err == nil
}

// GetVariableNames returns the names of every variable with the specified GUID.
func GetVariableNames(efiVars Variables, filterGUID efi.GUID) (names []string, err error) {
	vars, err := efiVars.ListVariables()
	if err != nil {
		return nil, err
	}
	for _, entry := range vars {
		if entry.GUID != filterGUID {
			continue
		}
		names = append(names, entry.Name)
	}
	return names, nil
}
