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

package utils

import (
	"github.com/hashicorp/go-multierror"
)

type CleanFunc func() error

type cleanJob struct {
	run       CleanFunc
	onErrOnly bool
}

// CleanStack is a LIFO list of release functions for resources acquired
// while setting something up, such as an open disk image.
type CleanStack struct {
	jobs []cleanJob
}

// NewCleanStack returns a new stack.
func NewCleanStack() *CleanStack {
	return &CleanStack{}
}

// Push adds a job that always runs on Cleanup
func (clean *CleanStack) Push(cFunc CleanFunc) {
	clean.jobs = append(clean.jobs, cleanJob{run: cFunc})
}

// PushErrorOnly adds a job that only runs when Cleanup gets an error, it
// releases what would otherwise be handed over to the caller
func (clean *CleanStack) PushErrorOnly(cFunc CleanFunc) {
	clean.jobs = append(clean.jobs, cleanJob{run: cFunc, onErrOnly: true})
}

// Len returns the number of pending jobs
func (clean *CleanStack) Len() int {
	return len(clean.jobs)
}

// Cleanup runs and drops every pending job, last pushed first. The returned
// error aggregates err and any job failure.
func (clean *CleanStack) Cleanup(err error) error {
	var errs error
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	failed := err != nil
	for i := len(clean.jobs) - 1; i >= 0; i-- {
		job := clean.jobs[i]
		if job.onErrOnly && !failed {
			continue
		}
		if jErr := job.run(); jErr != nil {
			errs = multierror.Append(errs, jErr)
		}
	}
	clean.jobs = nil
	return errs
}
