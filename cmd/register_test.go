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
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	partchainError "github.com/partchain/partchain/pkg/error"
)

var _ = Describe("register", Label("register", "cmd"), func() {
	var esp string

	BeforeEach(func() {
		rootCmd = NewRootCmd()
		_ = NewRegisterCmd(rootCmd, false)
		esp = GinkgoT().TempDir()
	})
	AfterEach(func() {
		viper.Reset()
	})

	It("fails when the loader is not in the ESP", Label("args"), func() {
		_, _, err := executeCommandC(rootCmd, "register", "--config-dir", "/none", "--esp", esp, "-l", "/usr/lib/partchain.efi")
		Expect(err).To(HaveOccurred())
		Expect(exitCode(err)).To(Equal(partchainError.InvalidSpec))
	})
	It("fails when the loader does not exist", func() {
		_, _, err := executeCommandC(rootCmd, "register", "--config-dir", "/none", "--esp", esp, "-l", filepath.Join(esp, "EFI", "partchain", "partchain.efi"))
		Expect(err).To(HaveOccurred())
		Expect(exitCode(err)).To(Equal(partchainError.InvalidSpec))
	})
	It("requires a label", Label("args"), func() {
		_, _, err := executeCommandC(rootCmd, "register", "--config-dir", "/none", "--esp", esp, "--label", "")
		Expect(err).To(HaveOccurred())
	})
})
