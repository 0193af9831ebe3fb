// Package services defines the error taxonomy shared by the submission path,
// the conversion pipeline, and the HTTP surface.
package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks rejected input: bad reference syntax, unsupported
	// source, or batch size out of bounds. Nothing was mutated.
	ErrValidation = errors.New("validation error")
	// ErrSourceUnavailable marks metadata or stream fetch failures.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrTranscode marks transcoding failures.
	ErrTranscode = errors.New("transcode failure")
	// ErrNotFound marks lookup misses for jobs or artifacts.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks backing store or blob substrate faults.
	ErrStorage = errors.New("storage fault")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrStorage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureDetail renders the human-readable error string persisted on a
// failed job. The sentinel prefix is stripped so clients see the cause, not
// the classification.
func FailureDetail(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{ErrSourceUnavailable, ErrTranscode, ErrValidation, ErrStorage, ErrNotFound} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
