package cmd

// Middleware wraps a handler (e.g. logging, metrics).
type Middleware[S Source] func(Handler[S]) Handler[S]

// Apply applies middlewares in order; the first in the list is the innermost.
func Apply[S Source](h Handler[S], mws ...Middleware[S]) Handler[S] {
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}
