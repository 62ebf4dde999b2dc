// Package admin implements the administrative command surface over the
// capture manager: stop, force-capture, reset and zone inspection.
package admin

import (
	"errors"
	"fmt"
	"strings"
)

// Command is one admin command.
type Command interface {
	// Name is the command keyword.
	Name() string
	// Usage is a one-line usage string.
	Usage() string
	// Execute runs the command and returns a human-readable result.
	Execute(args []string) (string, error)
}

// ErrUnknownCommand is returned for unregistered keywords.
var ErrUnknownCommand = errors.New("unknown command")

// Handler dispatches admin command lines to registered commands.
type Handler struct {
	commands map[string]Command
}

// NewHandler creates an empty handler.
func NewHandler() *Handler {
	return &Handler{commands: make(map[string]Command, 8)}
}

// Register adds a command, replacing any previous one with the name.
func (h *Handler) Register(cmd Command) {
	h.commands[cmd.Name()] = cmd
}

// Execute parses and runs one command line.
func (h *Handler) Execute(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ErrUnknownCommand
	}
	cmd, ok := h.commands[fields[0]]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
	return cmd.Execute(fields[1:])
}

// Usage lists usage lines for all registered commands.
func (h *Handler) Usage() []string {
	result := make([]string, 0, len(h.commands))
	for _, cmd := range h.commands {
		result = append(result, cmd.Usage())
	}
	return result
}
