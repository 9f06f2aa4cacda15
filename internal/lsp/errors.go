package lsp

import (
	"errors"
	"fmt"
)

// NotFoundError means the language server executable is not on PATH. It is
// the one LSP failure that aborts an explicitly requested --lsp run; the
// message carries installation instructions.
type NotFoundError struct {
	Command     string
	InstallHint string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found\n\nLSP refinement was requested but the language server is not available.\n%s\n\nTo index without LSP refinement, omit the --lsp flag.",
		e.Command, e.InstallHint)
}

// ServerError is a JSON-RPC error response from the server.
type ServerError struct {
	Code    int64
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("LSP error %d: %s", e.Code, e.Message)
}

// ErrClientClosed is returned by queries after a transport failure or
// shutdown has retired the client.
var ErrClientClosed = errors.New("lsp client is closed")
