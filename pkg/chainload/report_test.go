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

package chainload_test

import (
	"bytes"

	efi "github.com/canonical/go-efilib"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gopkg.in/yaml.v3"

	"github.com/partchain/partchain/pkg/chainload"
	"github.com/partchain/partchain/pkg/firmware"
	"github.com/partchain/partchain/pkg/guid"
	"github.com/partchain/partchain/pkg/mocks"
)

var _ = Describe("Report", Label("chainload", "report"), func() {
	var fw *mocks.FakeBootServices
	var wanted efi.GUID
	var c *chainload.Chainloader

	BeforeEach(func() {
		fw = mocks.NewFakeBootServices()
		wanted = guid.MustParse("5808c8aa-7e8f-42e0-85d2-e1e90434cfb3")
		Expect(fw.AddGPTPartition(0x30, guid.MustParse("0fc63daf-8483-4772-8e79-3d69d8477de4"), diskPath(1))).To(Succeed())
		Expect(fw.AddGPTPartition(0x40, wanted, diskPath(2))).To(Succeed())
		c = chainload.New(fw, chainload.WithTarget(wanted))
		Expect(c.Run()).To(Equal(firmware.Success))
	})

	It("renders as YAML", func() {
		var buf bytes.Buffer
		Expect(c.Report().WriteYAML(&buf)).To(Succeed())

		out := map[string]interface{}{}
		Expect(yaml.Unmarshal(buf.Bytes(), &out)).To(Succeed())
		Expect(out["target"]).To(Equal("5808c8aa-7e8f-42e0-85d2-e1e90434cfb3"))
		Expect(out["status"]).To(Equal("SUCCESS"))
		Expect(out["handles"]).To(Equal(2))
		Expect(out["image"]).To(Equal("0x2000"))
		Expect(out["accepted"]).To(HaveKeyWithValue("handle", "0x40"))
		Expect(out["skipped"]).To(HaveLen(1))
		Expect(out["path"]).To(ContainSubstring(`\EFI\Microsoft\Boot\bootmgfw.efi`))
	})
	It("renders as text", func() {
		var buf bytes.Buffer
		Expect(c.Report().WriteText(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("status:   SUCCESS"))
		Expect(buf.String()).To(ContainSubstring("accepted: 0x40"))
		Expect(buf.String()).To(ContainSubstring("Enumerating -> Skipped -> Accepted -> PathBuilding -> Loading -> Starting -> Terminal"))
	})
	It("leaves out what a failed run never reached", func() {
		fw := mocks.NewFakeBootServices()
		c := chainload.New(fw, chainload.WithTarget(wanted))
		Expect(c.Run()).To(Equal(firmware.NotFound))

		var buf bytes.Buffer
		Expect(c.Report().WriteYAML(&buf)).To(Succeed())
		out := map[string]interface{}{}
		Expect(yaml.Unmarshal(buf.Bytes(), &out)).To(Succeed())
		Expect(out).ToNot(HaveKey("accepted"))
		Expect(out).ToNot(HaveKey("path"))
		Expect(out["status"]).To(Equal("NOT_FOUND"))
	})
})
