package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ReportLogger records every report sent to the virtual pad.
type ReportLogger interface {
	Log(target string, data []byte)
}

type reportLogger struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewReportLogger writes one line per report to w. A nil w discards.
func NewReportLogger(w io.Writer) ReportLogger {
	return &reportLogger{w: w, now: time.Now}
}

// Log writes "<time> -> <target> <n> bytes: <hex>".
func (r *reportLogger) Log(target string, data []byte) {
	if r.w == nil || len(data) == 0 {
		return
	}
	line := fmt.Sprintf("%s -> %s %d bytes: % x\n",
		r.now().Format("2006/01/02 15:04:05.000"), target, len(data), data)

	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = io.WriteString(r.w, line)
}

// Discard drops every report.
var Discard ReportLogger = NewReportLogger(nil)
