// Package tethys is a code-intelligence cache for polyglot source
// repositories. It discovers source files under a workspace root, parses
// them with tree-sitter, extracts symbol definitions and references,
// resolves cross-file references (optionally via a language server),
// persists the facts in a local SQLite index, and answers navigation and
// impact queries over that index.
package tethys
