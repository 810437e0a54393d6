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

// Package targetgen resolves and renders the compiled-in target partition
// GUID used by pkg/target.
package targetgen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"os"
	"text/template"

	efi "github.com/canonical/go-efilib"
	"github.com/joho/godotenv"

	"github.com/partchain/partchain/pkg/constants"
	"github.com/partchain/partchain/pkg/guid"
)

var tmpl = template.Must(template.New("target").Parse(`// Code generated by gen.go from {{ .Env }}; DO NOT EDIT.

package target

import (
	efi "github.com/canonical/go-efilib"
)

const literal = {{ printf "%q" .Literal }}

var compiled = efi.GUID{
	{{ range $i, $b := .Bytes }}{{ if eq $i 8 }}
	{{ end }}0x{{ printf "%02x" $b }}, {{ end }}
}
`))

// ErrNilGUID is returned for the all zero GUID, which no partition carries.
var ErrNilGUID = errors.New("the nil GUID cannot identify a partition")

// Lookup returns the target GUID literal from the environment, falling back
// to envFile. The process environment is never modified.
func Lookup(envFile string) (string, error) {
	if v, ok := os.LookupEnv(constants.TargetGUIDEnv); ok {
		return v, nil
	}
	vars, err := godotenv.Read(envFile)
	if err != nil {
		return "", fmt.Errorf("%s is not set and %s cannot be read: %w", constants.TargetGUIDEnv, envFile, err)
	}
	v, ok := vars[constants.TargetGUIDEnv]
	if !ok {
		return "", fmt.Errorf("%s is not set in the environment nor in %s", constants.TargetGUIDEnv, envFile)
	}
	return v, nil
}

// Validate parses literal and rejects the nil GUID.
func Validate(literal string) (efi.GUID, error) {
	g, err := guid.Parse(literal)
	if err != nil {
		return efi.GUID{}, err
	}
	if g == (efi.GUID{}) {
		return efi.GUID{}, ErrNilGUID
	}
	return g, nil
}

// Render returns the gofmt'ed source of zz_generated_target.go for literal.
func Render(literal string) ([]byte, error) {
	g, err := Validate(literal)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Env     string
		Literal string
		Bytes   []byte
	}{constants.TargetGUIDEnv, literal, g[:]})
	if err != nil {
		return nil, err
	}
	return format.Source(buf.Bytes())
}

// Run resolves the literal through Lookup and writes the rendered file to out.
// Nothing is written when the value is missing or invalid.
func Run(envFile, out string) error {
	literal, err := Lookup(envFile)
	if err != nil {
		return err
	}
	src, err := Render(literal)
	if err != nil {
		return err
	}
	return os.WriteFile(out, src, constants.FilePerm)
}
