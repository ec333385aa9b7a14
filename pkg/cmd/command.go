// Package cmd provides a transport-agnostic command core: a command has a name,
// a required permission level, an argument syntax and a handler. How messages
// reach the resolver (Discord, CLI, tests) is defined by adapters that satisfy
// Source.
package cmd

import (
	"context"
	"fmt"
	"strings"
)

// PermissionLevel is an ordered classification of a member's authority.
type PermissionLevel int

const (
	Everyone PermissionLevel = iota
	Moderator
	Admin
	Owner
)

func (l PermissionLevel) String() string {
	switch l {
	case Everyone:
		return "everyone"
	case Moderator:
		return "moderator"
	case Admin:
		return "admin"
	case Owner:
		return "owner"
	}
	return "unknown"
}

// ParseLevel is the inverse of PermissionLevel.String.
func ParseLevel(s string) (PermissionLevel, error) {
	for l := Everyone; l <= Owner; l++ {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return Everyone, fmt.Errorf("unknown permission level %q", s)
}

// Rejection is the reason a command invocation was refused.
// The zero value means the invocation was not rejected.
type Rejection int

const (
	NoRejection Rejection = iota
	MissingPermission
	IncorrectSyntax
)

func (r Rejection) String() string {
	switch r {
	case NoRejection:
		return "none"
	case MissingPermission:
		return "missing permission"
	case IncorrectSyntax:
		return "incorrect syntax"
	}
	return "unknown"
}

// Result is what a handler hands back: an optional reply, or a rejection.
type Result struct {
	Reply     string
	Rejection Rejection
}

// Reply returns a result that answers with text. Empty text means no reply.
func Reply(text string) Result { return Result{Reply: text} }

// Reject returns a result carrying a rejection.
func Reject(r Rejection) Result { return Result{Rejection: r} }

// Silent is a result with neither reply nor rejection.
var Silent = Result{}

// Source is the minimal view of an inbound message the resolver needs.
type Source interface {
	Content() string
	Prefix() string
	Level() PermissionLevel
}

// Invocation carries everything a handler receives for one call.
type Invocation[S Source] struct {
	Command *Command[S]
	Source  S
	Args    string
}

// Fields splits the argument string on whitespace.
func (inv *Invocation[S]) Fields() []string {
	return strings.Fields(inv.Args)
}

// Handler runs a command. A non-nil error is unexpected and is not
// translated into a reply.
type Handler[S Source] func(ctx context.Context, inv *Invocation[S]) (Result, error)

// Command is a named, permission-gated, syntax-validated action.
type Command[S Source] struct {
	Name        string
	Description string
	Usage       string
	Level       PermissionLevel
	// Syntax is a regexp2 pattern matched against the whole argument string.
	// Empty accepts anything.
	Syntax  string
	Handler Handler[S]
}
