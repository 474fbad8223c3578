package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

const redacted = "[REDACTED]"

var sensitiveKeys = []string{
	"password",
	"token",
	"access_token",
	"refresh_token",
	"secret",
	"key",
	"authorization",
	"cookie",
	"code",
}

// RedactHook masks sensitive fields before an entry reaches the formatter.
type RedactHook struct {
	keys []string
}

func NewRedactHook(extra ...string) *RedactHook {
	keys := make([]string, 0, len(sensitiveKeys)+len(extra))
	keys = append(keys, sensitiveKeys...)
	for _, k := range extra {
		keys = append(keys, strings.ToLower(k))
	}
	return &RedactHook{keys: keys}
}

func (h *RedactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *RedactHook) Fire(entry *logrus.Entry) error {
	for k, v := range entry.Data {
		if h.sensitive(k) {
			entry.Data[k] = redacted
			continue
		}
		if m, ok := v.(map[string]any); ok {
			entry.Data[k] = h.redactMap(m)
		}
	}
	return nil
}

// redactMap returns a masked copy; the caller's map is never mutated.
func (h *RedactHook) redactMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch {
		case h.sensitive(k):
			out[k] = redacted
		default:
			if m, ok := v.(map[string]any); ok {
				out[k] = h.redactMap(m)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

// sensitive matches a key exactly or by its last underscore separated
// segment, so "api_key" and "session_token" are caught too.
func (h *RedactHook) sensitive(key string) bool {
	key = strings.ToLower(key)
	for _, k := range h.keys {
		if key == k || strings.HasSuffix(key, "_"+k) {
			return true
		}
	}
	return false
}
