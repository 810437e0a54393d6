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

// provides a custom error interface and exit codes to use on the partchain cli
package error

//
// Provided exit codes for partchain

// To make it easy to generate them you have to respect the structure:
//
// comment that explains the error
// const NamedConstant = ERRORCODE

// Error reading the configuration
const ReadingConfig = 10

// Invalid command line flags or configuration values
const InvalidSpec = 11

// The given literal is not a valid GUID
const InvalidGUID = 12

// Error opening a disk image
const OpenImage = 13

// Error reading the partition table of a disk image
const ReadPartitionTable = 14

// The simulated chainload found no partition with the target GUID
const TargetNotFound = 15

// The simulated chainload failed after finding the target partition
const ChainloadFailed = 16

// Error listing host block devices
const ProbeDevices = 17

// EFI variables are not available on this host
const EFIVariables = 18

// Error registering the boot entry
const RegisterEntry = 19

// Error writing the command output
const WriteOutput = 20

// The command requires root privileges
const RootRequired = 21

// Unknown error
const Unknown int = 255
