package config

import (
	"fmt"
	"strings"
)

const (
	errRequiredEnvNotSetFmt = "required environment variables not set: %s"
	errBackendPartialFmt    = "%s storage is partially configured, also set: %s"
)

type messageBuilders struct {
	requiredEnvNotSet func(keys []string) string
	backendPartial    func(backend string, missing []string) string
}

func newMessageBuilders() messageBuilders {
	return messageBuilders{
		requiredEnvNotSet: func(keys []string) string {
			return fmt.Sprintf(errRequiredEnvNotSetFmt, strings.Join(keys, ", "))
		},
		backendPartial: func(backend string, missing []string) string {
			return fmt.Sprintf(errBackendPartialFmt, backend, strings.Join(missing, ", "))
		},
	}
}

var messages = newMessageBuilders()

// envCollector reads required variables and remembers which were empty so
// Load can report all of them at once.
type envCollector struct {
	missing []string
}

func (e *envCollector) require(key string) string {
	value := getEnv(key, "")
	if value == "" {
		e.missing = append(e.missing, key)
	}
	return value
}

func (e *envCollector) err() error {
	if len(e.missing) == 0 {
		return nil
	}
	return fmt.Errorf("%s", messages.requiredEnvNotSet(e.missing))
}

// missingKeys returns the keys whose values are empty, in argument order.
func missingKeys(pairs ...string) []string {
	var out []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			out = append(out, pairs[i])
		}
	}
	return out
}
