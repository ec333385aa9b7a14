package cmd

import (
	"context"
	"strings"
	"unicode"
)

// Invoker runs a resolved command bound to its source and arguments.
type Invoker func(ctx context.Context) (Result, error)

// Resolver matches message text against a registry.
type Resolver[S Source] struct {
	registry    *Registry[S]
	middlewares []Middleware[S]
}

// NewResolver returns a resolver over reg. Middlewares wrap every handler it
// binds.
func NewResolver[S Source](reg *Registry[S], mws ...Middleware[S]) *Resolver[S] {
	return &Resolver[S]{registry: reg, middlewares: mws}
}

// Registry returns the registry the resolver scans.
func (r *Resolver[S]) Registry() *Registry[S] { return r.registry }

// Resolve decides what src means. A nil Invoker with NoRejection means the
// message is not a command, including unknown command names, which are
// treated as ordinary chat.
func (r *Resolver[S]) Resolve(ctx context.Context, src S) (Invoker, Rejection) {
	name, args, ok := Parse(src.Content(), src.Prefix())
	if !ok {
		return nil, NoRejection
	}

	e, found := r.registry.find(name)
	if !found {
		return nil, NoRejection
	}

	if src.Level() < e.cmd.Level {
		return nil, MissingPermission
	}

	if e.syntax != nil {
		matched, err := e.syntax.MatchString(args)
		if err != nil || !matched {
			return nil, IncorrectSyntax
		}
	}

	handler := Apply(e.cmd.Handler, r.middlewares...)
	inv := &Invocation[S]{Command: e.cmd, Source: src, Args: args}
	return func(ctx context.Context) (Result, error) {
		return handler(ctx, inv)
	}, NoRejection
}

// Parse splits content into a command name and the trimmed argument string.
// ok is false when content does not start with prefix or nothing follows it.
func Parse(content, prefix string) (name, args string, ok bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}

	rest := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if rest == "" {
		return "", "", false
	}

	i := strings.IndexFunc(rest, unicode.IsSpace)
	if i < 0 {
		return strings.ToLower(rest), "", true
	}
	return strings.ToLower(rest[:i]), strings.TrimSpace(rest[i:]), true
}
