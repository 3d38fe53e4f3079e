package fwenable

import (
	"fmt"
)

// ConfigurationError is returned before any network activity when the
// requested run makes no sense.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return e.Reason
}

// ProtocolMismatchError means a portal response did not contain something the
// form sequence depends on. Body holds the full response text for diagnosis.
type ProtocolMismatchError struct {
	Stage    Stage
	Expected string
	Body     string
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("did not find expected %s in response text (stage %s):\n%s", e.Expected, e.Stage, e.Body)
}
