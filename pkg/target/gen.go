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

//go:build ignore

// gen writes zz_generated_target.go from the target partition GUID found in
// the environment or in the build env file. It exits non zero when the GUID
// is missing or malformed so that a broken value never reaches a binary.
package main

import (
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/partchain/partchain/internal/targetgen"
	"github.com/partchain/partchain/pkg/constants"
)

func main() {
	envFile := flag.String("env-file", constants.BuildEnvFile, "env file read when the variable is not set")
	out := flag.String("out", "zz_generated_target.go", "output file")
	flag.Parse()

	if err := targetgen.Run(*envFile, *out); err != nil {
		logrus.Fatalf("Cannot generate target GUID: %v", err)
	}
}
