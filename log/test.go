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
	"strings"
	"sync"
	"testing"

	"gitlab.com/flimzy/testy"
)

// TestLogger is a Logger test double. Use the Check() function in tests to
// validate the logs collected.
type TestLogger struct {
	mu   sync.Mutex
	logs []string
}

var _ Logger = &TestLogger{}

// NewTest returns a new test logger.
func NewTest() *TestLogger {
	return &TestLogger{
		logs: []string{},
	}
}

func (l *TestLogger) log(level, line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, fmt.Sprintf("[%s] %s",
		level,
		strings.TrimSpace(line),
	))
}

func (*TestLogger) SetOut(io.Writer) {}
func (*TestLogger) SetErr(io.Writer) {}
func (*TestLogger) SetDebug(bool)    {}

func (l *TestLogger) Debug(args ...interface{}) {
	l.log("DEBUG", fmt.Sprint(args...))
}

func (l *TestLogger) Debugf(format string, args ...interface{}) {
	l.log("DEBUG", fmt.Sprintf(format, args...))
}

func (l *TestLogger) Info(args ...interface{}) {
	l.log("INFO", fmt.Sprint(args...))
}

func (l *TestLogger) Infof(format string, args ...interface{}) {
	l.log("INFO", fmt.Sprintf(format, args...))
}

func (l *TestLogger) Error(args ...interface{}) {
	l.log("ERROR", fmt.Sprint(args...))
}

func (l *TestLogger) Errorf(format string, args ...interface{}) {
	l.log("ERROR", fmt.Sprintf(format, args...))
}

// Logs returns a copy of the log lines collected so far.
func (l *TestLogger) Logs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.logs...)
}

// Check validates the logs received against the expected lines.
func (l *TestLogger) Check(t *testing.T, expected ...string) {
	t.Helper()
	if d := testy.DiffText(strings.Join(expected, "\n"), strings.Join(l.Logs(), "\n")); d != nil {
		t.Errorf("Unexpected logs:\n%s", d)
	}
}

// Contains reports whether any collected line contains substr.
func (l *TestLogger) Contains(substr string) bool {
	for _, line := range l.Logs() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
