package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// Scope selects which categories of a cluster a pass checks
type Scope string

const (
	ScopeAll           Scope = "ALL"
	ScopeYarn          Scope = "YARN"
	ScopeHdfs          Scope = "HDFS"
	ScopeOtherServices Scope = "OTHER_SERVICES"
)

// ErrUnknownScope is returned by ParseScope
var ErrUnknownScope = errors.New("unknown health check scope")

// ParseScope accepts scope names case-insensitively, with dashes or underscores
func ParseScope(s string) (Scope, error) {
	normalized := Scope(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	switch normalized {
	case ScopeAll, ScopeYarn, ScopeHdfs, ScopeOtherServices:
		return normalized, nil
	case "OTHERS", "OTHER":
		return ScopeOtherServices, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScope, s)
}

// label is the metrics label of a scope
func (s Scope) label() string {
	return strings.ToLower(string(s))
}
