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

package guid_test

import (
	"errors"
	"strings"

	efi "github.com/canonical/go-efilib"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/partchain/partchain/pkg/guid"
)

var _ = Describe("GUID", Label("guid"), func() {
	Describe("Parse", func() {
		It("stores the first three fields little-endian and the rest in order", func() {
			g, err := guid.Parse("01020304-0506-0708-090a-0b0c0d0e0f10")
			Expect(err).ToNot(HaveOccurred())
			Expect(g).To(Equal(efi.GUID{
				0x04, 0x03, 0x02, 0x01,
				0x06, 0x05,
				0x08, 0x07,
				0x09, 0x0a,
				0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
			}))
		})
		It("agrees with go-efilib field accessors", func() {
			g, err := guid.Parse("c12a7328-f81f-11d2-ba4b-00a0c93ec93b")
			Expect(err).ToNot(HaveOccurred())
			Expect(g.A()).To(Equal(uint32(0xc12a7328)))
			Expect(g.B()).To(Equal(uint16(0xf81f)))
			Expect(g.C()).To(Equal(uint16(0x11d2)))
			Expect(g.D()).To(Equal(uint16(0xba4b)))
			Expect(g.E()).To(Equal([6]uint8{0x00, 0xa0, 0xc9, 0x3e, 0xc9, 0x3b}))
			Expect(g).To(Equal(efi.MakeGUID(0xc12a7328, 0xf81f, 0x11d2, 0xba4b, [...]uint8{0x00, 0xa0, 0xc9, 0x3e, 0xc9, 0x3b})))
		})
		It("accepts upper and mixed case digits", func() {
			lower, err := guid.Parse("5808c8aa-7e8f-42e0-85d2-e1e90434cfb3")
			Expect(err).ToNot(HaveOccurred())
			upper, err := guid.Parse("5808C8AA-7E8F-42E0-85D2-E1E90434CFB3")
			Expect(err).ToNot(HaveOccurred())
			mixed, err := guid.Parse("5808c8AA-7e8F-42e0-85D2-e1E90434cFb3")
			Expect(err).ToNot(HaveOccurred())
			Expect(upper).To(Equal(lower))
			Expect(mixed).To(Equal(lower))
		})
		DescribeTable("round-trips through Format",
			func(literal string) {
				g, err := guid.Parse(literal)
				Expect(err).ToNot(HaveOccurred())
				Expect(guid.Format(g)).To(Equal(literal))
			},
			Entry("sequential bytes", "01020304-0506-0708-090a-0b0c0d0e0f10"),
			Entry("EFI system partition type", "c12a7328-f81f-11d2-ba4b-00a0c93ec93b"),
			Entry("all zero", "00000000-0000-0000-0000-000000000000"),
			Entry("all ones", "ffffffff-ffff-ffff-ffff-ffffffffffff"),
			Entry("random", "5808c8aa-7e8f-42e0-85d2-e1e90434cfb3"),
		)
		DescribeTable("rejects malformed literals",
			func(literal string, offset int) {
				_, err := guid.Parse(literal)
				Expect(err).To(HaveOccurred())
				var synErr *guid.SyntaxError
				Expect(errors.As(err, &synErr)).To(BeTrue())
				Expect(synErr.Literal).To(Equal(literal))
				Expect(synErr.Offset).To(Equal(offset))
			},
			Entry("empty", "", -1),
			Entry("too short", "01020304-0506-0708-090a-0b0c0d0e0f1", -1),
			Entry("too long", "01020304-0506-0708-090a-0b0c0d0e0f100", -1),
			Entry("braces", "{01020304-0506-0708-090a-0b0c0d0e0f}", 8),
			Entry("non hex in first group", "0102030g-0506-0708-090a-0b0c0d0e0f10", 7),
			Entry("non hex in last group", "01020304-0506-0708-090a-0b0c0d0e0fz0", 34),
			Entry("hyphen moved left", "0102030-40506-0708-090a-0b0c0d0e0f10", 8),
			Entry("hyphen moved right", "01020304-05060-708-090a-0b0c0d0e0f10", 13),
			Entry("hyphen replaced", "01020304-0506-0708_090a-0b0c0d0e0f10", 18),
			Entry("missing hyphens padded", "0102030405060708090a0b0c0d0e0f101234", 8),
			Entry("space instead of digit", "01020304-0506-0708-090a- b0c0d0e0f10", 24),
		)
		It("MustParse panics on invalid input", func() {
			Expect(func() { guid.MustParse("not-a-guid") }).To(Panic())
			Expect(func() { guid.MustParse("01020304-0506-0708-090a-0b0c0d0e0f10") }).ToNot(Panic())
		})
		It("produces a readable error message", func() {
			_, err := guid.Parse("0102030g-0506-0708-090a-0b0c0d0e0f10")
			Expect(err.Error()).To(ContainSubstring("offset 7"))
			_, err = guid.Parse(strings.Repeat("0", 10))
			Expect(err.Error()).To(ContainSubstring("length is 10"))
		})
	})
	Describe("UUID conversion", func() {
		It("converts RFC 4122 byte order into the EFI layout and back", func() {
			u := uuid.MustParse("01020304-0506-0708-090a-0b0c0d0e0f10")
			g := guid.FromUUID(u)
			Expect(g).To(Equal(guid.MustParse("01020304-0506-0708-090a-0b0c0d0e0f10")))
			Expect(guid.ToUUID(g)).To(Equal(u))
			Expect(guid.ToUUID(g).String()).To(Equal(guid.Format(g)))
		})
		It("parses loose UUID forms", func() {
			g, err := guid.ParseUUID("{5808C8AA-7E8F-42E0-85D2-E1E90434CFB3}")
			Expect(err).ToNot(HaveOccurred())
			Expect(g).To(Equal(guid.MustParse("5808c8aa-7e8f-42e0-85d2-e1e90434cfb3")))
			_, err = guid.ParseUUID("nope")
			Expect(err).To(HaveOccurred())
		})
	})
})
