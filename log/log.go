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

// Package log handles logging.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Logger is the standard logger interface.
type Logger interface {
	// SetOut sets the destination for normal output.
	SetOut(io.Writer)
	// SetErr sets the destination for error output.
	SetErr(io.Writer)
	// SetDebug turns debug mode on or off.
	SetDebug(bool)
	// Debug logs debug output.
	Debug(...interface{})
	// Debugf logs formatted debug output.
	Debugf(string, ...interface{})
	// Info logs normal priority messages.
	Info(...interface{})
	// Infof logs formatted normal priority messages.
	Infof(string, ...interface{})
	// Error logs error messages.
	Error(...interface{})
	// Errorf logs formatted error messages.
	Errorf(string, ...interface{})
}

type logger struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	debug  bool
}

var _ Logger = &logger{}

// New returns a new logger instance, which writes informational messages to
// stdout, and errors and debug messages to stderr.
func New() Logger {
	return &logger{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

func (l *logger) SetOut(out io.Writer) {
	l.mu.Lock()
	l.stdout = out
	l.mu.Unlock()
}

func (l *logger) SetErr(err io.Writer) {
	l.mu.Lock()
	l.stderr = err
	l.mu.Unlock()
}

func (l *logger) SetDebug(debug bool) {
	l.mu.Lock()
	l.debug = debug
	l.mu.Unlock()
}

func (l *logger) err(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.stderr, strings.TrimSpace(line))
}

func (l *logger) out(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintln(l.stdout, strings.TrimSpace(line))
}

func (l *logger) debugging() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *logger) Debug(args ...interface{}) {
	if l.debugging() {
		l.err(fmt.Sprint(args...))
	}
}

func (l *logger) Debugf(format string, args ...interface{}) {
	if l.debugging() {
		l.err(fmt.Sprintf(format, args...))
	}
}

func (l *logger) Info(args ...interface{}) {
	l.out(fmt.Sprint(args...))
}

func (l *logger) Infof(format string, args ...interface{}) {
	l.out(fmt.Sprintf(format, args...))
}

func (l *logger) Error(args ...interface{}) {
	l.err(fmt.Sprint(args...))
}

func (l *logger) Errorf(format string, args ...interface{}) {
	l.err(fmt.Sprintf(format, args...))
}
