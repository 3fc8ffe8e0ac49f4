package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Role is the permission level granted to a user.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWriter Role = "writer"
	RoleReader Role = "reader"
)

var validRoles = map[Role]struct{}{
	RoleAdmin:  {},
	RoleWriter: {},
	RoleReader: {},
}

var (
	doctypeNamePattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9 _-]{0,63}$`)
	documentNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._-]{0,139}$`)
	fieldNamePattern    = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)
)

// ParseRole normalizes and validates a role name.
func ParseRole(raw string) (Role, error) {
	value := Role(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("role is required")
	}
	if _, ok := validRoles[value]; !ok {
		return "", fmt.Errorf("invalid role: %s", value)
	}
	return value, nil
}

// CanWriteAll reports whether the role may modify any document.
func (r Role) CanWriteAll() bool {
	return r == RoleAdmin || r == RoleWriter
}

func IsValidDoctypeName(name string) bool {
	return doctypeNamePattern.MatchString(name)
}

func IsValidDocumentName(name string) bool {
	if strings.Contains(name, "..") {
		return false
	}
	return documentNamePattern.MatchString(name)
}

func IsValidFieldName(name string) bool {
	return fieldNamePattern.MatchString(name)
}
