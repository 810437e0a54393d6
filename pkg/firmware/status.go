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
	"errors"
	"fmt"
	"strings"
)

// Status corresponds to EFI_STATUS on a 64-bit firmware.
type Status uint64

const errorBit Status = 1 << 63

// Status codes from the UEFI specification, appendix D.
const (
	Success              Status = 0
	LoadError                   = errorBit | 1
	InvalidParameter            = errorBit | 2
	Unsupported                 = errorBit | 3
	BadBufferSize               = errorBit | 4
	BufferTooSmall              = errorBit | 5
	NotReady                    = errorBit | 6
	DeviceError                 = errorBit | 7
	WriteProtected              = errorBit | 8
	OutOfResources              = errorBit | 9
	VolumeCorrupted             = errorBit | 10
	VolumeFull                  = errorBit | 11
	NoMedia                     = errorBit | 12
	MediaChanged                = errorBit | 13
	NotFound                    = errorBit | 14
	AccessDenied                = errorBit | 15
	NoResponse                  = errorBit | 16
	NoMapping                   = errorBit | 17
	Timeout                     = errorBit | 18
	NotStarted                  = errorBit | 19
	AlreadyStarted              = errorBit | 20
	Aborted                     = errorBit | 21
	ProtocolError               = errorBit | 24
	IncompatibleVersion         = errorBit | 25
	SecurityViolation           = errorBit | 26
	CRCError                    = errorBit | 27
	EndOfMedia                  = errorBit | 28
	EndOfFile                   = errorBit | 31
	InvalidLanguage             = errorBit | 32
	CompromisedData             = errorBit | 33
)

var statusNames = map[Status]string{
	Success:             "SUCCESS",
	LoadError:           "LOAD_ERROR",
	InvalidParameter:    "INVALID_PARAMETER",
	Unsupported:         "UNSUPPORTED",
	BadBufferSize:       "BAD_BUFFER_SIZE",
	BufferTooSmall:      "BUFFER_TOO_SMALL",
	NotReady:            "NOT_READY",
	DeviceError:         "DEVICE_ERROR",
	WriteProtected:      "WRITE_PROTECTED",
	OutOfResources:      "OUT_OF_RESOURCES",
	VolumeCorrupted:     "VOLUME_CORRUPTED",
	VolumeFull:          "VOLUME_FULL",
	NoMedia:             "NO_MEDIA",
	MediaChanged:        "MEDIA_CHANGED",
	NotFound:            "NOT_FOUND",
	AccessDenied:        "ACCESS_DENIED",
	NoResponse:          "NO_RESPONSE",
	NoMapping:           "NO_MAPPING",
	Timeout:             "TIMEOUT",
	NotStarted:          "NOT_STARTED",
	AlreadyStarted:      "ALREADY_STARTED",
	Aborted:             "ABORTED",
	ProtocolError:       "PROTOCOL_ERROR",
	IncompatibleVersion: "INCOMPATIBLE_VERSION",
	SecurityViolation:   "SECURITY_VIOLATION",
	CRCError:            "CRC_ERROR",
	EndOfMedia:          "END_OF_MEDIA",
	EndOfFile:           "END_OF_FILE",
	InvalidLanguage:     "INVALID_LANGUAGE",
	CompromisedData:     "COMPROMISED_DATA",
}

// ParseStatus maps a status name such as NOT_FOUND back to its value. Names
// are matched case-insensitively and an EFI_ prefix is accepted.
func ParseStatus(name string) (Status, error) {
	name = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "EFI_")
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// IsError reports whether the high bit is set.
func (s Status) IsError() bool {
	return s&errorBit != 0
}

// Code returns the status without the error bit.
func (s Status) Code() uint64 {
	return uint64(s &^ errorBit)
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	if s.IsError() {
		return fmt.Sprintf("ERROR(%d)", s.Code())
	}
	return fmt.Sprintf("WARNING(%d)", s.Code())
}

// Error lets a bare Status be returned where an error is expected.
func (s Status) Error() string {
	return s.String()
}

// Error is a firmware call failure carrying the status the firmware reported.
type Error struct {
	Status Status
	Op     string
	Err    error
}

// Errorf builds an *Error for the given status.
func Errorf(status Status, format string, args ...interface{}) error {
	return &Error{Status: status, Op: fmt.Sprintf(format, args...)}
}

// Wrap attaches a status to an underlying error.
func Wrap(status Status, op string, err error) error {
	return &Error{Status: status, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Status.String()
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Op, e.Status)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Status, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf extracts the firmware status from err. A nil error is Success and
// an error that carries no status is reported as LoadError.
func StatusOf(err error) Status {
	if err == nil {
		return Success
	}
	var fwErr *Error
	if errors.As(err, &fwErr) {
		return fwErr.Status
	}
	var status Status
	if errors.As(err, &status) {
		return status
	}
	return LoadError
}
