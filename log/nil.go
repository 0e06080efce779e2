// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package log

import "io"

// nilLogger drops everything. bootstrap falls back to it when handed a nil
// Logger.
type nilLogger struct{}

var _ Logger = nilLogger{}

// NewNil returns a Logger which discards all output, including debug output
// when SetDebug is enabled.
func NewNil() Logger { return nilLogger{} }

func (nilLogger) SetOut(io.Writer)              {}
func (nilLogger) SetErr(io.Writer)              {}
func (nilLogger) SetDebug(bool)                 {}
func (nilLogger) Debug(...interface{})          {}
func (nilLogger) Debugf(string, ...interface{}) {}
func (nilLogger) Info(...interface{})           {}
func (nilLogger) Infof(string, ...interface{})  {}
func (nilLogger) Error(...interface{})          {}
func (nilLogger) Errorf(string, ...interface{}) {}
