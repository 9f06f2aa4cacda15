package lsp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Location is a resolved source position (0-based, LSP convention).
type Location struct {
	Path   string
	Line   int
	Column int
}

// Client is an LSP client bound to one spawned language server. Requests
// are strictly sequential: a new request is not written until the response
// with the matching id has been read.
type Client struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	requestID int64
	logger    *slog.Logger
	closed    bool
	shutdown  bool
}

// Start spawns the provider's language server, wires up stdio, and performs
// the initialize handshake. A missing executable surfaces as *NotFoundError.
func Start(provider Provider, workspaceRoot string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := exec.LookPath(provider.Command); err != nil {
		return nil, &NotFoundError{Command: provider.Command, InstallHint: provider.InstallHint}
	}

	cmd := exec.Command(provider.Command, provider.Args...)
	cmd.Dir = workspaceRoot
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lsp: spawn %s: %w", provider.Command, err)
	}
	logger.Debug("started LSP server", "command", provider.Command, "workspace", workspaceRoot)

	c := newClient(stdin, stdout, logger)
	c.cmd = cmd

	if err := c.initialize(workspaceRoot, provider.InitializeOptions); err != nil {
		c.Close()
		return nil, fmt.Errorf("lsp: initialize handshake: %w", err)
	}
	return c, nil
}

// newClient builds a Client over raw streams. Split out so tests can drive
// the transport without a subprocess.
func newClient(in io.WriteCloser, out io.Reader, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{stdin: in, stdout: bufio.NewReader(out), logger: logger}
}

// initialize performs the LSP initialize handshake, advertising progress
// capability so servers that report workspace loading behave.
func (c *Client) initialize(workspaceRoot string, initOptions any) error {
	params := map[string]any{
		"rootUri": pathToURI(workspaceRoot),
		"capabilities": map[string]any{
			"window": map[string]any{"workDoneProgress": true},
		},
	}
	if initOptions != nil {
		params["initializationOptions"] = initOptions
	}
	if _, err := c.request("initialize", params); err != nil {
		return err
	}
	return c.notify("initialized", map[string]any{})
}

// DidOpen tells the server a document is open. Servers like csharp-ls only
// answer queries about explicitly opened documents.
func (c *Client) DidOpen(path, text, languageID string) error {
	return c.notify("textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{
			"uri":        pathToURI(path),
			"languageId": languageID,
			"version":    1,
			"text":       text,
		},
	})
}

// Definition asks for the definition of the symbol at the given 0-based
// position. Returns nil when the server has no answer.
func (c *Client) Definition(path string, line, column int) (*Location, error) {
	result, err := c.request("textDocument/definition", positionParams(path, line, column))
	if err != nil {
		return nil, err
	}
	locs := parseLocations(result)
	if len(locs) == 0 {
		return nil, nil
	}
	return &locs[0], nil
}

// References asks for all reference sites of the symbol at the given
// position, excluding the declaration itself.
func (c *Client) References(path string, line, column int) ([]Location, error) {
	params := positionParams(path, line, column)
	params["context"] = map[string]any{"includeDeclaration": false}
	result, err := c.request("textDocument/references", params)
	if err != nil {
		return nil, err
	}
	return parseLocations(result), nil
}

// WaitForWorkspaceLoad blocks until the server reports the end of a
// "Loading workspace" progress sequence, or the timeout passes. Returns
// whether loading was observed to complete. Server requests received while
// waiting are acknowledged with null results.
func (c *Client) WaitForWorkspaceLoad(timeout time.Duration) (bool, error) {
	if c.closed {
		return false, ErrClientClosed
	}
	deadline := time.Now().Add(timeout)
	var loadingToken string

	c.logger.Debug("waiting for workspace load", "timeout", timeout)
	for time.Now().Before(deadline) {
		msg, err := c.readMessage()
		if err != nil {
			c.closed = true
			return false, err
		}

		method, _ := msg["method"].(string)
		if method == "" {
			continue
		}
		if id, ok := msg["id"]; ok {
			if err := c.writeMessage(map[string]any{"jsonrpc": "2.0", "id": id, "result": nil}); err != nil {
				c.closed = true
				return false, err
			}
		}
		if method != "$/progress" {
			continue
		}

		params, _ := msg["params"].(map[string]any)
		if params == nil {
			continue
		}
		token := progressToken(params["token"])
		value, _ := params["value"].(map[string]any)
		if value == nil {
			continue
		}
		switch value["kind"] {
		case "begin":
			title, _ := value["title"].(string)
			if strings.HasPrefix(title, "Loading workspace") && token != "" {
				c.logger.Debug("workspace loading started", "token", token, "title", title)
				loadingToken = token
			}
		case "end":
			if loadingToken != "" && token == loadingToken {
				c.logger.Debug("workspace loading completed")
				return true, nil
			}
		}
	}
	c.logger.Debug("timeout waiting for workspace load", "observed_begin", loadingToken != "")
	return false, nil
}

// Shutdown performs the shutdown request / exit notification sequence and
// reaps the child.
func (c *Client) Shutdown() error {
	if c.closed {
		return ErrClientClosed
	}
	if _, err := c.request("shutdown", nil); err != nil {
		return err
	}
	if err := c.notify("exit", nil); err != nil {
		return err
	}
	c.shutdown = true
	c.closed = true
	if c.cmd != nil {
		if err := c.cmd.Wait(); err != nil {
			c.logger.Warn("LSP server exited uncleanly", "error", err)
		}
	}
	return nil
}

// Close force-terminates the client. If Shutdown has not completed, the
// child process is killed so it cannot linger as a zombie.
func (c *Client) Close() {
	if c.shutdown {
		return
	}
	c.closed = true
	_ = c.notify("exit", nil)
	_ = c.stdin.Close()
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
}

// request writes a request and reads messages until the matching response
// arrives. Interleaved notifications are skipped; server requests are
// acknowledged with a null result.
func (c *Client) request(method string, params any) (json.RawMessage, error) {
	if c.closed {
		return nil, ErrClientClosed
	}
	c.requestID++
	id := c.requestID

	msg := map[string]any{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		msg["params"] = params
	}
	if err := c.writeMessage(msg); err != nil {
		c.closed = true
		return nil, err
	}

	for {
		resp, err := c.readMessage()
		if err != nil {
			c.closed = true
			return nil, err
		}

		if m, ok := resp["method"].(string); ok && m != "" {
			if respID, hasID := resp["id"]; hasID {
				c.logger.Debug("acknowledging server request", "method", m)
				if err := c.writeMessage(map[string]any{"jsonrpc": "2.0", "id": respID, "result": nil}); err != nil {
					c.closed = true
					return nil, err
				}
			}
			continue
		}

		if errObj, ok := resp["error"].(map[string]any); ok {
			code, _ := errObj["code"].(float64)
			message, _ := errObj["message"].(string)
			return nil, &ServerError{Code: int64(code), Message: message}
		}

		respID, ok := resp["id"].(float64)
		if !ok {
			return nil, fmt.Errorf("lsp: response missing id")
		}
		if int64(respID) != id {
			return nil, fmt.Errorf("lsp: response id mismatch: expected %d, got %d", id, int64(respID))
		}

		raw, _ := json.Marshal(resp["result"])
		return raw, nil
	}
}

// notify writes a notification (no response expected).
func (c *Client) notify(method string, params any) error {
	msg := map[string]any{"jsonrpc": "2.0", "method": method}
	if params != nil {
		msg["params"] = params
	}
	return c.writeMessage(msg)
}

// writeMessage frames a message as "Content-Length: N\r\n\r\n{json}".
func (c *Client) writeMessage(msg map[string]any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("lsp: marshal message: %w", err)
	}
	if _, err := fmt.Fprintf(c.stdin, "Content-Length: %d\r\n\r\n", len(body)); err != nil {
		return fmt.Errorf("lsp: write header: %w", err)
	}
	if _, err := c.stdin.Write(body); err != nil {
		return fmt.Errorf("lsp: write body: %w", err)
	}
	return nil
}

// readMessage reads one framed message.
func (c *Client) readMessage() (map[string]any, error) {
	contentLength := -1
	for {
		line, err := c.stdout.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("lsp: server exited unexpectedly")
			}
			return nil, fmt.Errorf("lsp: read header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if value, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("lsp: invalid Content-Length %q", value)
			}
			contentLength = n
		}
	}
	if contentLength < 0 {
		return nil, fmt.Errorf("lsp: missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(c.stdout, body); err != nil {
		return nil, fmt.Errorf("lsp: read body: %w", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("lsp: decode message: %w", err)
	}
	return msg, nil
}

func positionParams(path string, line, column int) map[string]any {
	return map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
		"position":     map[string]any{"line": line, "character": column},
	}
}

// parseLocations accepts a Location, []Location, or []LocationLink result.
func parseLocations(raw json.RawMessage) []Location {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	type lspRange struct {
		Start struct {
			Line      int `json:"line"`
			Character int `json:"character"`
		} `json:"start"`
	}
	type lspLocation struct {
		URI                 string    `json:"uri"`
		Range               *lspRange `json:"range"`
		TargetURI           string    `json:"targetUri"`
		TargetSelectionSpan *lspRange `json:"targetSelectionRange"`
	}

	toLocation := func(l lspLocation) (Location, bool) {
		uri, rng := l.URI, l.Range
		if uri == "" {
			uri, rng = l.TargetURI, l.TargetSelectionSpan
		}
		path := uriToPath(uri)
		if path == "" || rng == nil {
			return Location{}, false
		}
		return Location{Path: path, Line: rng.Start.Line, Column: rng.Start.Character}, true
	}

	var single lspLocation
	if err := json.Unmarshal(raw, &single); err == nil {
		if loc, ok := toLocation(single); ok {
			return []Location{loc}
		}
	}
	var many []lspLocation
	if err := json.Unmarshal(raw, &many); err == nil {
		var locs []Location
		for _, l := range many {
			if loc, ok := toLocation(l); ok {
				locs = append(locs, loc)
			}
		}
		return locs
	}
	return nil
}

func progressToken(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	default:
		return ""
	}
}

func pathToURI(path string) string {
	return "file://" + path
}

func uriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return ""
	}
	path := strings.TrimPrefix(uri, "file://")
	if decoded, err := url.PathUnescape(path); err == nil {
		return decoded
	}
	return path
}
