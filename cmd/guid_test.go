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

package cmd

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	partchainError "github.com/partchain/partchain/pkg/error"
	"github.com/partchain/partchain/pkg/target"
)

var _ = Describe("guid", Label("guid", "cmd"), func() {
	BeforeEach(func() {
		rootCmd = NewRootCmd()
		_ = NewGUIDCmd(rootCmd)
	})
	AfterEach(func() {
		viper.Reset()
	})
	It("shows the compiled-in target without arguments", func() {
		_, out, err := executeCommandC(rootCmd, "guid")
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(ContainSubstring(target.String()))
	})
	It("shows the mixed endian layout", func() {
		_, out, err := executeCommandC(rootCmd, "guid", "5808C8AA-7E8F-42E0-85D2-E1E90434CFB3")
		Expect(err).ToNot(HaveOccurred())
		Expect(out).To(ContainSubstring("guid:  5808c8aa-7e8f-42e0-85d2-e1e90434cfb3"))
		Expect(out).To(ContainSubstring("bytes: aa c8 08 58 8f 7e e0 42 85 d2 e1 e9 04 34 cf b3"))
		Expect(out).To(ContainSubstring("data1: 0x5808c8aa"))
		Expect(out).To(ContainSubstring("data2: 0x7e8f"))
		Expect(out).To(ContainSubstring("data3: 0x42e0"))
		Expect(out).To(ContainSubstring("uuid:  5808c8aa7e8f42e085d2e1e90434cfb3"))
	})
	It("fails with InvalidGUID on a malformed literal", Label("args"), func() {
		_, _, err := executeCommandC(rootCmd, "guid", "{5808c8aa-7e8f-42e0-85d2-e1e90434cfb3}")
		Expect(err).To(HaveOccurred())
		var pErr *partchainError.PartchainError
		Expect(errors.As(err, &pErr)).To(BeTrue())
		Expect(pErr.ExitCode()).To(Equal(partchainError.InvalidGUID))
	})
	It("refuses more than one argument", Label("args"), func() {
		_, _, err := executeCommandC(rootCmd, "guid", "a", "b")
		Expect(err).To(HaveOccurred())
	})
})
