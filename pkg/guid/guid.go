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

// Package guid decodes textual partition identifiers into the EFI_GUID byte
// layout used by firmware partition metadata.
package guid

import (
	"fmt"

	efi "github.com/canonical/go-efilib"
	"github.com/google/uuid"
)

// Length of the canonical hyphenated form, 8-4-4-4-12.
const Length = 36

// hyphen offsets in the canonical form
var hyphens = [...]int{8, 13, 18, 23}

// group describes where a field starts in the text and whether its bytes are
// stored reversed (little-endian) in the binary layout.
type group struct {
	offset  int
	size    int
	reverse bool
}

var groups = [...]group{
	{offset: 0, size: 4, reverse: true},
	{offset: 9, size: 2, reverse: true},
	{offset: 14, size: 2, reverse: true},
	{offset: 19, size: 2},
	{offset: 24, size: 6},
}

// SyntaxError reports a malformed identifier literal.
type SyntaxError struct {
	Literal string
	Offset  int
	Reason  string
}

func (e *SyntaxError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("invalid GUID %q: %s", e.Literal, e.Reason)
	}
	return fmt.Sprintf("invalid GUID %q at offset %d: %s", e.Literal, e.Offset, e.Reason)
}

// Parse decodes a 36 character xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx literal.
// Hex digits may be in either case. Braces or any other decoration are rejected.
func Parse(s string) (efi.GUID, error) {
	var out efi.GUID

	if len(s) != Length {
		return out, &SyntaxError{Literal: s, Offset: -1, Reason: fmt.Sprintf("length is %d, expected %d", len(s), Length)}
	}
	for _, h := range hyphens {
		if s[h] != '-' {
			return out, &SyntaxError{Literal: s, Offset: h, Reason: "expected '-'"}
		}
	}

	i := 0
	for _, g := range groups {
		for b := 0; b < g.size; b++ {
			pos := g.offset + 2*b
			v, err := hexByte(s, pos)
			if err != nil {
				return efi.GUID{}, err
			}
			dst := i + b
			if g.reverse {
				dst = i + g.size - 1 - b
			}
			out[dst] = v
		}
		i += g.size
	}
	return out, nil
}

// MustParse is like Parse but panics on a malformed literal. It is meant for
// package level values that are fixed at build time.
func MustParse(s string) efi.GUID {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return g
}

// Format encodes g back into its lowercase canonical text.
func Format(g efi.GUID) string {
	return g.String()
}

// FromUUID converts an RFC 4122 UUID, as reported by Linux for PARTUUID, into
// the EFI layout.
func FromUUID(u uuid.UUID) efi.GUID {
	return efi.GUID(swap(u))
}

// ToUUID converts an EFI GUID into RFC 4122 byte order.
func ToUUID(g efi.GUID) uuid.UUID {
	return uuid.UUID(swap(g))
}

// ParseUUID accepts any textual form understood by google/uuid and returns
// the EFI layout.
func ParseUUID(s string) (efi.GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return efi.GUID{}, err
	}
	return FromUUID(u), nil
}

// swap flips the first three fields between big and little endian. The
// operation is its own inverse.
func swap(in [16]byte) (out [16]byte) {
	out = in
	out[0], out[1], out[2], out[3] = in[3], in[2], in[1], in[0]
	out[4], out[5] = in[5], in[4]
	out[6], out[7] = in[7], in[6]
	return out
}

func hexByte(s string, pos int) (byte, error) {
	hi, ok := nibble(s[pos])
	if !ok {
		return 0, &SyntaxError{Literal: s, Offset: pos, Reason: fmt.Sprintf("invalid hex digit %q", s[pos])}
	}
	lo, ok := nibble(s[pos+1])
	if !ok {
		return 0, &SyntaxError{Literal: s, Offset: pos + 1, Reason: fmt.Sprintf("invalid hex digit %q", s[pos+1])}
	}
	return hi<<4 | lo, nil
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
