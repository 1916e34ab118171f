package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role es el rol del usuario dentro del marketplace.
type Role string

const (
	RolePatient Role = "PATIENT"
	RoleNurse   Role = "NURSE"
)

// ParseRole normaliza un rol recibido en texto libre.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RolePatient:
		return RolePatient, nil
	case RoleNurse:
		return RoleNurse, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleNurse
}

// Counterpart devuelve el rol del otro lado de la conversación.
func (r Role) Counterpart() Role {
	switch r {
	case RolePatient:
		return RoleNurse
	case RoleNurse:
		return RolePatient
	}
	return ""
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = Role(strings.ToUpper(strings.TrimSpace(s)))
	return nil
}

// Identity es el usuario actual, provisto por el proveedor de identidad externo.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Token string `json:"-"`
}

func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.ID) == ""
}
