package idgen

import (
	"github.com/google/uuid"
)

// ID prefixes for different models
const (
	PrefixSession = "fs_"
	PrefixRequest = "req_"
)

// NewSession generates a new focus session ID with fs_ prefix
func NewSession() string {
	return PrefixSession + uuid.New().String()
}

// NewRequest generates a request correlation ID with req_ prefix
func NewRequest() string {
	return PrefixRequest + uuid.New().String()
}

// New generates a generic UUID without prefix (for internal use only)
func New() string {
	return uuid.New().String()
}
