package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures the rotating log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultFileConfig returns rotation settings for path: 10 MB per file,
// five compressed backups kept for 30 days.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:       path,
		MaxSizeMB:  10,
		MaxBackups: 5,
		MaxAgeDays: 30,
		Compress:   true,
	}
}

// EnableFile copies every log event, as a JSON line, into a rotating file in
// addition to the console. Call CloseFile when done.
func (l *Logger) EnableFile(cfg FileConfig) {
	if l.nop || cfg.Path == "" {
		return
	}
	l.CloseFile()
	l.file = &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	l.SetOutput(l.output)
}

// CloseFile stops file logging and closes the file.
func (l *Logger) CloseFile() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if !l.nop {
		l.SetOutput(l.output)
	}
	return err
}
