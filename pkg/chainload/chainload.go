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

// Package chainload finds the partition carrying the target GUID and chains
// into the boot loader stored on it.
package chainload

import (
	"errors"
	"fmt"

	efi "github.com/canonical/go-efilib"

	"github.com/partchain/partchain/pkg/constants"
	"github.com/partchain/partchain/pkg/devicepath"
	"github.com/partchain/partchain/pkg/firmware"
	"github.com/partchain/partchain/pkg/target"
	"github.com/partchain/partchain/pkg/types"
)

// State is a step of the chainload pipeline.
type State int

const (
	Enumerating State = iota
	Skipped
	Accepted
	PathBuilding
	Loading
	Starting
	Terminal
)

func (s State) String() string {
	switch s {
	case Enumerating:
		return "Enumerating"
	case Skipped:
		return "Skipped"
	case Accepted:
		return "Accepted"
	case PathBuilding:
		return "PathBuilding"
	case Loading:
		return "Loading"
	case Starting:
		return "Starting"
	case Terminal:
		return "Terminal"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Skip records why a candidate handle was rejected.
type Skip struct {
	Handle firmware.Handle
	Reason string
}

// Candidate is the accepted partition.
type Candidate struct {
	Handle firmware.Handle
	System bool
	Entry  *efi.PartitionEntry
}

// Report describes what a run did. It is filled in as the run progresses.
type Report struct {
	Target   efi.GUID
	Handles  int
	Skipped  []Skip
	Accepted *Candidate
	Path     devicepath.Path
	Image    firmware.ImageHandle
	States   []State
	Status   firmware.Status
}

// Chainloader runs the locate, build and launch pipeline once.
type Chainloader struct {
	services   firmware.BootServices
	logger     types.Logger
	target     efi.GUID
	bootloader string
	bufferSize int
	report     Report
}

type Option func(c *Chainloader)

func WithLogger(logger types.Logger) Option {
	return func(c *Chainloader) {
		c.logger = logger
	}
}

func WithTarget(g efi.GUID) Option {
	return func(c *Chainloader) {
		c.target = g
	}
}

func WithBootloader(path string) Option {
	return func(c *Chainloader) {
		c.bootloader = path
	}
}

func WithBufferSize(size int) Option {
	return func(c *Chainloader) {
		c.bufferSize = size
	}
}

// New returns a Chainloader for the compiled-in target and boot loader path.
func New(services firmware.BootServices, opts ...Option) *Chainloader {
	c := &Chainloader{
		services:   services,
		logger:     types.NewNullLogger(),
		target:     target.GUID(),
		bootloader: constants.BootloaderPath,
		bufferSize: constants.ScratchBufferSize,
	}
	for _, o := range opts {
		o(c)
	}
	c.report.Target = c.target
	return c
}

// Report returns the progress of the last run.
func (c *Chainloader) Report() *Report {
	return &c.report
}

func (c *Chainloader) enter(s State) {
	c.report.States = append(c.report.States, s)
}

// Locate scans every partition handle and returns the first whose GPT
// unique partition GUID equals the target. Per handle failures only skip
// that handle. A failed enumeration and an exhausted scan both report
// NOT_FOUND.
func (c *Chainloader) Locate() (*Candidate, error) {
	c.enter(Enumerating)
	handles, err := c.services.LocateHandleBuffer(firmware.PartitionInfoProtocol)
	if err != nil {
		c.logger.Errorf("Failed to locate partition handles: %v", err)
		return nil, firmware.Wrap(firmware.NotFound, "locate partition handles", err)
	}
	c.report.Handles = len(handles)
	c.logger.Debugf("Found %d partition handles", len(handles))

	for _, h := range handles {
		candidate, reason := c.inspect(h)
		if reason != nil {
			c.enter(Skipped)
			c.report.Skipped = append(c.report.Skipped, Skip{Handle: h, Reason: reason.Error()})
			c.logger.Debugf("Skipping handle %#x: %v", uintptr(h), reason)
			continue
		}
		c.enter(Accepted)
		c.report.Accepted = candidate
		c.logger.Infof("Found partition %s on handle %#x", c.target, uintptr(h))
		return candidate, nil
	}

	c.logger.Errorf("No partition matches %s", c.target)
	return nil, firmware.Errorf(firmware.NotFound, "no partition with unique GUID %s", c.target)
}

// inspect returns a non nil reason when h is not the target.
func (c *Chainloader) inspect(h firmware.Handle) (*Candidate, error) {
	raw, err := c.services.OpenProtocol(h, firmware.PartitionInfoProtocol)
	if err != nil {
		return nil, fmt.Errorf("cannot open partition info protocol: %w", err)
	}
	info, err := firmware.ReadPartitionInfo(raw)
	if err != nil {
		return nil, err
	}
	if info.Type != firmware.PartitionTypeGPT {
		return nil, fmt.Errorf("partition type is %s", info.Type)
	}
	entry, err := info.GPTEntry()
	if err != nil {
		return nil, err
	}
	id := entry.UniquePartitionGUID
	if id != c.target {
		return nil, fmt.Errorf("unique GUID %s does not match", id)
	}
	return &Candidate{Handle: h, System: info.System, Entry: entry}, nil
}

// Synthesize copies the device path of h into a bounded buffer and appends
// the boot loader file node. A handle without a device path aborts the run
// with the firmware status unchanged; a path that does not fit aborts with
// LOAD_ERROR.
func (c *Chainloader) Synthesize(h firmware.Handle) (devicepath.Path, error) {
	c.enter(PathBuilding)
	raw, err := c.services.OpenProtocol(h, firmware.DevicePathProtocol)
	if err != nil {
		c.logger.Errorf("Failed to open device path protocol for %s: %v", c.target, err)
		return nil, err
	}
	nodes, err := devicepath.Nodes(raw)
	if err != nil {
		c.logger.Errorf("Failed to read device path: %v", err)
		return nil, firmware.Wrap(firmware.LoadError, "read device path", err)
	}

	b := devicepath.NewBuilder(c.bufferSize)
	for _, n := range nodes {
		if err = b.PushRaw(n); err != nil {
			c.logger.Errorf("Failed to build device path: %v", err)
			return nil, firmware.Wrap(firmware.LoadError, "build device path", err)
		}
	}
	if err = b.PushFile(c.bootloader); err != nil {
		c.logger.Errorf("Failed to finalize path: %v", err)
		return nil, firmware.Wrap(firmware.LoadError, "build device path", err)
	}
	path, err := b.Finalize()
	if err != nil {
		c.logger.Errorf("Failed to finalize path: %v", err)
		return nil, firmware.Wrap(firmware.LoadError, "finalize device path", err)
	}
	c.report.Path = path
	c.logger.Debugf("Boot loader device path: %s", path)
	return path, nil
}

// Launch loads the image at path with the exact match policy and starts it.
// StartImage returning without error counts as success.
func (c *Chainloader) Launch(path devicepath.Path) error {
	c.enter(Loading)
	image, err := c.services.LoadImage(firmware.ExactMatch, c.services.CurrentImage(), path)
	if err != nil {
		c.logger.Errorf("Failed to load image %s on %s: %v", c.bootloader, c.target, err)
		return err
	}
	c.report.Image = image

	c.enter(Starting)
	c.logger.Infof("Starting %s", c.bootloader)
	if err = c.services.StartImage(image); err != nil {
		c.logger.Errorf("Image %s failed to start: %v", c.bootloader, err)
		return err
	}
	return nil
}

// Run executes the whole pipeline and returns the status to exit with.
func (c *Chainloader) Run() firmware.Status {
	err := c.run()
	c.enter(Terminal)
	c.report.Status = firmware.StatusOf(err)
	return c.report.Status
}

func (c *Chainloader) run() error {
	candidate, err := c.Locate()
	if err != nil {
		return err
	}
	path, err := c.Synthesize(candidate.Handle)
	if err != nil {
		return err
	}
	return c.Launch(path)
}

// Run is the chainloader entry point: it runs the pipeline once against
// services and returns the status the image should exit with.
func Run(services firmware.BootServices, opts ...Option) firmware.Status {
	return New(services, opts...).Run()
}

// IsNotFound reports whether err ended the scan without a match.
func IsNotFound(err error) bool {
	var fwErr *firmware.Error
	return errors.As(err, &fwErr) && fwErr.Status == firmware.NotFound
}
