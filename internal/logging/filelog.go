package logging

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// EnableFileOutput tees every subsequent log event into a rotating log
// file at path, keeping the console writer intact. The file receives
// the raw JSON lines so sessions can be inspected with standard
// tooling. Rotation keeps five compressed 10 MB backups for 30 days.
// The caller owns the returned closer.
func (l *Logger) EnableFileOutput(path string) io.Closer {
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	l.file = file
	l.rebuild()
	return file
}
