// Package env reads CODECS_* environment overrides.
package env

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Prefix is prepended to every variable name the codec tools read.
const Prefix = "CODECS_"

var (
	warnLogger func(format string, args ...any) = func(format string, args ...any) {
		slog.Warn("deprecated environment variable", "detail", fmt.Sprintf(format, args...))
	}
	warnMu     sync.Mutex
	warnedKeys sync.Map
)

// Key returns the full variable name for a setting, e.g. "listen_addr"
// becomes CODECS_LISTEN_ADDR.
func Key(name string) string {
	return Prefix + strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
}

// Lookup returns the value of CODECS_<name>. When it is unset and one of
// the legacy variables is present, that value is returned instead and a
// deprecation warning is logged once per legacy name.
func Lookup(name string, legacy ...string) (string, bool) {
	key := Key(name)
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	for _, oldKey := range legacy {
		if v, ok := os.LookupEnv(oldKey); ok {
			logDeprecated(oldKey, key)
			return v, true
		}
	}
	return "", false
}

func logDeprecated(oldKey, newKey string) {
	onceIface, _ := warnedKeys.LoadOrStore(oldKey, &sync.Once{})
	once := onceIface.(*sync.Once)
	once.Do(func() {
		warnMu.Lock()
		logger := warnLogger
		warnMu.Unlock()
		logger("%s is deprecated; use %s", oldKey, newKey)
	})
}

// ResetWarningsForTesting clears the cached once guards so tests can verify
// warning behaviour deterministically.
func ResetWarningsForTesting() {
	warnMu.Lock()
	warnedKeys = sync.Map{}
	warnMu.Unlock()
}

// SetWarnLoggerForTesting swaps the logger used for warnings. The returned
// function restores the previous logger and should be deferred in tests.
func SetWarnLoggerForTesting(fn func(format string, args ...any)) (restore func()) {
	warnMu.Lock()
	previous := warnLogger
	warnLogger = fn
	warnMu.Unlock()
	return func() {
		warnMu.Lock()
		warnLogger = previous
		warnMu.Unlock()
	}
}
