//go:build !windows && !plan9

package logging

import (
	"io"
	"log/syslog"
)

func newSyslogWriter(tag string) (io.Writer, error) {
	return syslog.New(syslog.LOG_MAIL|syslog.LOG_INFO, tag)
}
