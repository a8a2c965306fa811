package llm

import "fmt"

// StatusError es un fallo reportado por el proveedor con su codigo HTTP.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("llm http error: status=%d: %s", e.StatusCode, e.Message)
}
