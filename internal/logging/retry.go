package logging

import (
	"fmt"
	"strings"
)

// RetryLogger adapts Logger to the retryablehttp.LeveledLogger interface.
// Info and debug chatter from the retry loop is demoted to debug.
type RetryLogger struct {
	L *Logger
}

func (r RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	r.L.Error().Msg(withFields(msg, keysAndValues))
}

func (r RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.L.Warn().Msg(withFields(msg, keysAndValues))
}

func (r RetryLogger) Info(msg string, keysAndValues ...interface{}) {
	r.L.Debug().Msg(withFields(msg, keysAndValues))
}

func (r RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.L.Debug().Msg(withFields(msg, keysAndValues))
}

func withFields(msg string, kv []interface{}) string {
	if len(kv) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	return b.String()
}
