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

package chainload

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type skipView struct {
	Handle string `yaml:"handle"`
	Reason string `yaml:"reason"`
}

type candidateView struct {
	Handle   string `yaml:"handle"`
	Name     string `yaml:"name,omitempty"`
	System   bool   `yaml:"system"`
	Type     string `yaml:"type"`
	StartLBA uint64 `yaml:"start-lba"`
	EndLBA   uint64 `yaml:"end-lba"`
}

type reportView struct {
	Target   string         `yaml:"target"`
	Status   string         `yaml:"status"`
	Handles  int            `yaml:"handles"`
	Skipped  []skipView     `yaml:"skipped,omitempty"`
	Accepted *candidateView `yaml:"accepted,omitempty"`
	Path     string         `yaml:"path,omitempty"`
	Image    string         `yaml:"image,omitempty"`
	States   []string       `yaml:"states"`
}

func (r *Report) view() reportView {
	v := reportView{
		Target:  r.Target.String(),
		Status:  r.Status.String(),
		Handles: r.Handles,
	}
	for _, s := range r.Skipped {
		v.Skipped = append(v.Skipped, skipView{Handle: fmt.Sprintf("%#x", uintptr(s.Handle)), Reason: s.Reason})
	}
	if c := r.Accepted; c != nil {
		v.Accepted = &candidateView{Handle: fmt.Sprintf("%#x", uintptr(c.Handle)), System: c.System}
		if c.Entry != nil {
			v.Accepted.Name = c.Entry.PartitionName
			v.Accepted.Type = c.Entry.PartitionTypeGUID.String()
			v.Accepted.StartLBA = uint64(c.Entry.StartingLBA)
			v.Accepted.EndLBA = uint64(c.Entry.EndingLBA)
		}
	}
	if r.Path != nil {
		v.Path = r.Path.String()
	}
	if r.Image != 0 {
		v.Image = fmt.Sprintf("%#x", uintptr(r.Image))
	}
	for _, s := range r.States {
		v.States = append(v.States, s.String())
	}
	return v
}

// MarshalYAML renders handles in hex and statuses by name
func (r *Report) MarshalYAML() (interface{}, error) {
	return r.view(), nil
}

// WriteYAML writes the report as a YAML document
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// WriteText writes a human readable summary of the report
func (r *Report) WriteText(w io.Writer) error {
	v := r.view()
	var b strings.Builder

	fmt.Fprintf(&b, "target:   %s\n", v.Target)
	fmt.Fprintf(&b, "handles:  %d\n", v.Handles)
	for _, s := range v.Skipped {
		fmt.Fprintf(&b, "skipped:  %s %s\n", s.Handle, s.Reason)
	}
	if a := v.Accepted; a != nil {
		fmt.Fprintf(&b, "accepted: %s %q lba %d-%d\n", a.Handle, a.Name, a.StartLBA, a.EndLBA)
	}
	if v.Path != "" {
		fmt.Fprintf(&b, "path:     %s\n", v.Path)
	}
	if v.Image != "" {
		fmt.Fprintf(&b, "image:    %s\n", v.Image)
	}
	fmt.Fprintf(&b, "states:   %s\n", strings.Join(v.States, " -> "))
	fmt.Fprintf(&b, "status:   %s\n", v.Status)

	_, err := io.WriteString(w, b.String())
	return err
}
