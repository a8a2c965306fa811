package domain

import "time"

// Role identifica al autor de un turno.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Context es una referencia opaca a un pasaje recuperado. No se interpreta ni se valida.
type Context struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
}

// Turn es un mensaje de la conversacion, del usuario o del asistente.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Contexts  []Context `json:"contexts"`
	Timestamp time.Time `json:"timestamp"`
	Degraded  bool      `json:"degraded,omitempty"`
}
