// Package authz decides whether an agent may execute a binary.
package authz

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/deixis/warden/internal/agent"
)

// Code identifies the authorization check that failed.
type Code string

const (
	AgentNotFound     Code = "agent_not_found"
	NoBinariesAllowed Code = "no_binaries_allowed"
	BinaryNotAllowed  Code = "binary_not_allowed"
	PathNotAbsolute   Code = "path_not_absolute"
	BinaryNotFound    Code = "binary_not_found"
	NotAFile          Code = "not_a_file"
	NotExecutable     Code = "not_executable"
)

// Error is returned when a request is not authorized.
type Error struct {
	Code    Code
	Message string
	Err     error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Gate checks requests against the agents' allow-lists.
type Gate struct {
	Agents agent.Store
}

// Authorize returns nil if agentID may execute path. The checks run in a
// fixed order and stop at the first failure: agent lookup, allow-list
// presence, allow-list membership, absolute path, existence, regular file,
// executable permission.
func (g *Gate) Authorize(agentID, path string) error {
	def, err := g.Agents.Get(agentID)
	if err != nil {
		if errors.Is(err, agent.ErrNotFound) {
			return &Error{Code: AgentNotFound, Message: fmt.Sprintf("Agent %q not found", agentID)}
		}
		return fmt.Errorf("looking up agent %s: %w", agentID, err)
	}

	if len(def.Binaries) == 0 {
		return &Error{Code: NoBinariesAllowed, Message: fmt.Sprintf("Agent %q has no allowed binaries", agentID)}
	}

	allowed := false
	for _, b := range def.Binaries {
		if b.Path == path {
			allowed = true
			break
		}
	}
	if !allowed {
		return &Error{Code: BinaryNotAllowed, Message: fmt.Sprintf("Binary %q is not allowed for agent %q", path, agentID)}
	}

	if !filepath.IsAbs(path) {
		return &Error{Code: PathNotAbsolute, Message: fmt.Sprintf("Binary path %q must be absolute", path)}
	}

	info, err := os.Stat(path)
	if err != nil {
		return &Error{Code: BinaryNotFound, Message: fmt.Sprintf("Binary %q not found", path), Err: err}
	}
	if !info.Mode().IsRegular() {
		return &Error{Code: NotAFile, Message: fmt.Sprintf("Binary path %q is not a file", path)}
	}

	if err := checkExecutable(path); err != nil {
		return &Error{Code: NotExecutable, Message: fmt.Sprintf("Binary %q is not executable", path), Err: err}
	}
	return nil
}
