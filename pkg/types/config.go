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

package types

import (
	"fmt"
	"path/filepath"
	"strings"

	efi "github.com/canonical/go-efilib"
	"github.com/hashicorp/go-multierror"

	"github.com/partchain/partchain/pkg/constants"
	"github.com/partchain/partchain/pkg/firmware"
)

// Config is the shared runtime configuration of the host commands
type Config struct {
	Logger       Logger
	Fs           FS
	EFIVariables EFIVariables
}

// SimulateSpec drives a chainload against an emulated firmware built from a
// disk image.
type SimulateSpec struct {
	Image       string          `yaml:"image,omitempty" mapstructure:"image"`
	Target      efi.GUID        `yaml:"target,omitempty" mapstructure:"target"`
	Bootloader  string          `yaml:"bootloader,omitempty" mapstructure:"bootloader"`
	BufferSize  int             `yaml:"buffer-size,omitempty" mapstructure:"buffer-size"`
	StartStatus firmware.Status `yaml:"start-status,omitempty" mapstructure:"start-status"`
	Output      string          `yaml:"output,omitempty" mapstructure:"output"`
}

// Sanitize checks the spec is usable and reports every problem at once
func (s *SimulateSpec) Sanitize() error {
	var errs error

	if s.Image == "" {
		errs = multierror.Append(errs, fmt.Errorf("undefined disk image"))
	}
	if s.Target == (efi.GUID{}) {
		errs = multierror.Append(errs, fmt.Errorf("target partition GUID must not be the nil GUID"))
	}
	if !strings.HasPrefix(s.Bootloader, `\`) {
		errs = multierror.Append(errs, fmt.Errorf("boot loader path '%s' must be absolute and use '\\' separators", s.Bootloader))
	}
	if strings.Contains(s.Bootloader, "/") {
		errs = multierror.Append(errs, fmt.Errorf("boot loader path '%s' contains '/'", s.Bootloader))
	}
	if s.BufferSize <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("invalid buffer size %d", s.BufferSize))
	}
	known := false
	for _, f := range constants.GetSimulateFormats() {
		if s.Output == f {
			known = true
		}
	}
	if !known {
		errs = multierror.Append(errs, fmt.Errorf("unknown output format '%s', valid formats are %v", s.Output, constants.GetSimulateFormats()))
	}
	return errs
}

// RegisterSpec installs a firmware boot entry for the chainloader binary
type RegisterSpec struct {
	Loader  string `yaml:"loader,omitempty" mapstructure:"loader"`
	Label   string `yaml:"label,omitempty" mapstructure:"label"`
	ESP     string `yaml:"esp,omitempty" mapstructure:"esp"`
	Options string `yaml:"options,omitempty" mapstructure:"options"`
}

// Sanitize checks the loader lives in the ESP and the entry has a label
func (r *RegisterSpec) Sanitize() error {
	var errs error

	if r.Label == "" {
		errs = multierror.Append(errs, fmt.Errorf("undefined boot entry label"))
	}
	if !filepath.IsAbs(r.ESP) {
		errs = multierror.Append(errs, fmt.Errorf("ESP mount point '%s' is not an absolute path", r.ESP))
	}
	if !filepath.IsAbs(r.Loader) {
		errs = multierror.Append(errs, fmt.Errorf("loader '%s' is not an absolute path", r.Loader))
	} else if _, err := r.RelativeLoader(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

// RelativeLoader returns the loader path relative to the ESP mount point
func (r RegisterSpec) RelativeLoader() (string, error) {
	rel, err := filepath.Rel(filepath.Clean(r.ESP), filepath.Clean(r.Loader))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("loader '%s' is not inside the ESP '%s'", r.Loader, r.ESP)
	}
	return rel, nil
}
