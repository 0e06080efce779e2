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

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang/glog"
)

// DebugLevel is the glog verbosity at which debug messages are emitted when
// debug mode has not been enabled with SetDebug.
const DebugLevel glog.Level = 2

type glogLogger struct {
	debug atomic.Bool

	// glog entry points, replaced in tests.
	infoDepth  func(depth int, args ...interface{})
	errorDepth func(depth int, args ...interface{})
	verbose    func(level glog.Level) glog.Verbose
}

var _ Logger = &glogLogger{}

// NewGlog returns a Logger backed by github.com/golang/glog. Output
// destinations are controlled by glog's own flags, so SetOut and SetErr are
// no-ops. Debug messages are logged at verbosity DebugLevel, unless SetDebug
// is enabled, in which case they are always logged.
func NewGlog() Logger {
	return &glogLogger{
		infoDepth:  glog.InfoDepth,
		errorDepth: glog.ErrorDepth,
		verbose:    glog.V,
	}
}

func (*glogLogger) SetOut(io.Writer) {}
func (*glogLogger) SetErr(io.Writer) {}

func (l *glogLogger) SetDebug(debug bool) {
	l.debug.Store(debug)
}

func (l *glogLogger) debugf(msg string) {
	if l.debug.Load() || bool(l.verbose(DebugLevel)) {
		l.infoDepth(2, msg)
	}
}

func (l *glogLogger) Debug(args ...interface{}) {
	l.debugf(fmt.Sprint(args...))
}

func (l *glogLogger) Debugf(format string, args ...interface{}) {
	l.debugf(fmt.Sprintf(format, args...))
}

func (l *glogLogger) Info(args ...interface{}) {
	l.infoDepth(1, fmt.Sprint(args...))
}

func (l *glogLogger) Infof(format string, args ...interface{}) {
	l.infoDepth(1, fmt.Sprintf(format, args...))
}

func (l *glogLogger) Error(args ...interface{}) {
	l.errorDepth(1, fmt.Sprint(args...))
}

func (l *glogLogger) Errorf(format string, args ...interface{}) {
	l.errorDepth(1, fmt.Sprintf(format, args...))
}
