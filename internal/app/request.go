package app

import "github.com/neomorfeo/farmconf/internal/domain"

// Request is what a caller knows before resolution: the HTTP host, or for
// command-line runs an explicit wiki and optionally a code version.
type Request struct {
	Host    string
	Wiki    string
	Version string
	CLI     bool
}

// RequestContext memoizes everything computed while serving one Request.
// It is not safe for concurrent use and must not outlive the request.
type RequestContext struct {
	Request

	lists map[string]domain.ListFile

	wiki         string
	wikiErr      error
	wikiResolved bool

	override       *domain.OverrideDocument
	overrideLoaded bool

	decls []domain.ExtensionDecl

	extensions *ExtensionSet
}

// NewRequestContext starts a resolution pass for req.
func NewRequestContext(req Request) *RequestContext {
	return &RequestContext{
		Request: req,
		lists:   make(map[string]domain.ListFile),
	}
}
