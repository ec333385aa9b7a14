package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
)

var (
	ErrDuplicateCommand     = errors.New("duplicate command name")
	ErrInvalidSyntaxPattern = errors.New("invalid syntax pattern")
	ErrInvalidCommand       = errors.New("invalid command")
)

const syntaxMatchTimeout = 100 * time.Millisecond

type entry[S Source] struct {
	cmd    *Command[S]
	syntax *regexp2.Regexp
}

// Registry stores commands in registration order. It does not dispatch;
// Resolver scans it.
type Registry[S Source] struct {
	entries []entry[S]
	names   map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry[S Source]() *Registry[S] {
	return &Registry[S]{names: make(map[string]struct{})}
}

// Register adds commands in order. Names are compared case-insensitively and
// must be unique; the syntax pattern is compiled here so a bad pattern fails
// at start-up instead of at resolve time.
func (r *Registry[S]) Register(cmds ...*Command[S]) error {
	for _, c := range cmds {
		if c == nil || c.Handler == nil {
			return fmt.Errorf("%w: missing handler", ErrInvalidCommand)
		}
		name := strings.ToLower(c.Name)
		if name == "" || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
			return fmt.Errorf("%w: bad name %q", ErrInvalidCommand, c.Name)
		}
		if _, exists := r.names[name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
		}

		e := entry[S]{cmd: c}
		if c.Syntax != "" {
			re, err := regexp2.Compile(`^(?:`+c.Syntax+`)$`, regexp2.None)
			if err != nil {
				return fmt.Errorf("%w for %s: %v", ErrInvalidSyntaxPattern, name, err)
			}
			re.MatchTimeout = syntaxMatchTimeout
			e.syntax = re
		}

		r.names[name] = struct{}{}
		r.entries = append(r.entries, e)
	}
	return nil
}

// MustRegister is Register that panics on configuration errors.
func (r *Registry[S]) MustRegister(cmds ...*Command[S]) {
	if err := r.Register(cmds...); err != nil {
		panic(err)
	}
}

// Get returns the command with the given name, or nil.
func (r *Registry[S]) Get(name string) *Command[S] {
	if e, ok := r.find(name); ok {
		return e.cmd
	}
	return nil
}

// All returns all registered commands in registration order.
func (r *Registry[S]) All() []*Command[S] {
	list := make([]*Command[S], 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e.cmd)
	}
	return list
}

// Len reports the number of registered commands.
func (r *Registry[S]) Len() int { return len(r.entries) }

func (r *Registry[S]) find(name string) (entry[S], bool) {
	for _, e := range r.entries {
		if strings.EqualFold(e.cmd.Name, name) {
			return e, true
		}
	}
	return entry[S]{}, false
}
