// Package mcp serves the research tools over the Model Context Protocol:
// newline-delimited JSON-RPC 2.0, usually on stdin/stdout.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/upb/research-mcp/services"
	"github.com/upb/research-mcp/services/tools"
	"go.uber.org/zap"
)

// maxMessageBytes bounds a single JSON-RPC line.
const maxMessageBytes = 16 * 1024 * 1024

// ToolHandler lists and executes tools. *tools.Dispatcher implements it.
type ToolHandler interface {
	Definitions() []tools.Definition
	Call(ctx context.Context, name string, args json.RawMessage) (interface{}, error)
}

// Server answers MCP requests with a ToolHandler.
type Server struct {
	tools        ToolHandler
	version      string
	instructions string
	logger       *zap.Logger

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// inflightCall is the cancel handle of one running tools/call.
type inflightCall struct {
	cancel context.CancelFunc
}

// NewServer creates an MCP server. version is reported as serverInfo.version.
func NewServer(handler ToolHandler, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		tools:    handler,
		version:  version,
		logger:   logger.With(zap.String("component", "mcp")),
		inflight: make(map[string]*inflightCall),
	}
}

// WithInstructions sets the instructions returned from initialize.
func (s *Server) WithInstructions(instructions string) *Server {
	s.instructions = instructions
	return s
}

// Serve reads one JSON-RPC message per line from r and writes responses to w
// until r is exhausted or ctx is cancelled. tools/call requests run
// concurrently; Serve waits for them before returning.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	out := &lineWriter{w: w}
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxMessageBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	s.logger.Info("mcp server started", zap.String("protocol_version", ProtocolVersion))

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("mcp server stopping", zap.Error(ctx.Err()))
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("failed to read MCP input: %w", err)
				}
				s.logger.Info("mcp input closed")
				return nil
			}
			if len(line) == 0 {
				continue
			}

			msg, errResp := parseMessage(line)
			if errResp != nil {
				s.write(out, errResp)
				continue
			}
			if msg == nil {
				continue
			}

			if msg.Method == MethodToolsCall && !msg.IsNotification() {
				callCtx, done := s.track(ctx, msg.ID)
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer done()
					s.write(out, s.handle(callCtx, msg))
				}()
				continue
			}

			if resp := s.handle(ctx, msg); resp != nil {
				s.write(out, resp)
			}
		}
	}
}

// HandleMessage processes one raw JSON-RPC message and returns the response, or
// nil for notifications.
func (s *Server) HandleMessage(ctx context.Context, data []byte) *Message {
	msg, errResp := parseMessage(data)
	if errResp != nil {
		return errResp
	}
	return s.handle(ctx, msg)
}

func parseMessage(data []byte) (*Message, *Message) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, errorMessage(json.RawMessage("null"), CodeParseError, "Parse error", err.Error())
	}
	if msg.JSONRPC != jsonRPCVersion || msg.Method == "" {
		// A response sent to us is not an error worth answering.
		if msg.Method == "" && (msg.Result != nil || msg.Error != nil) {
			return nil, nil
		}
		id := msg.ID
		if len(id) == 0 {
			id = json.RawMessage("null")
		}
		return nil, errorMessage(id, CodeInvalidRequest, "Invalid Request", nil)
	}
	return &msg, nil
}

func (s *Server) handle(ctx context.Context, msg *Message) *Message {
	if msg == nil {
		return nil
	}
	s.logger.Debug("mcp message", zap.String("method", msg.Method), zap.ByteString("id", msg.ID))

	if msg.IsNotification() {
		switch msg.Method {
		case MethodInitialized:
			s.logger.Info("mcp client initialized")
		case MethodCancelled:
			s.cancel(msg.Params)
		default:
			s.logger.Debug("ignoring notification", zap.String("method", msg.Method))
		}
		return nil
	}

	switch msg.Method {
	case MethodInitialize:
		return s.initialize(msg)
	case MethodPing:
		return resultMessage(msg.ID, struct{}{})
	case MethodToolsList:
		return resultMessage(msg.ID, &ToolsListResult{Tools: s.tools.Definitions()})
	case MethodToolsCall:
		return s.callTool(ctx, msg)
	default:
		return errorMessage(msg.ID, CodeMethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method), nil)
	}
}

func (s *Server) initialize(msg *Message) *Message {
	var params InitializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return errorMessage(msg.ID, CodeInvalidParams, "Invalid params", err.Error())
		}
	}

	s.logger.Info("mcp initialize",
		zap.String("client", params.ClientInfo.Name),
		zap.String("client_version", params.ClientInfo.Version),
		zap.String("requested_protocol", params.ProtocolVersion))

	return resultMessage(msg.ID, &InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
		ServerInfo:      Implementation{Name: ServerName, Version: s.version},
		Instructions:    s.instructions,
	})
}

func (s *Server) callTool(ctx context.Context, msg *Message) *Message {
	var params ToolCallParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return errorMessage(msg.ID, CodeInvalidParams, "Invalid params", err.Error())
	}
	if params.Name == "" {
		return errorMessage(msg.ID, CodeInvalidParams, "Invalid params", "tool name is required")
	}

	result, err := s.tools.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		return resultMessage(msg.ID, textResult(toolErrorPrefix+services.GetErrorMessage(err), true))
	}

	text, err := tools.FormatResult(result)
	if err != nil {
		return resultMessage(msg.ID, textResult(toolErrorPrefix+services.GetErrorMessage(err), true))
	}
	return resultMessage(msg.ID, textResult(text, false))
}

// track registers a cancellable context for request id so a later
// notifications/cancelled can stop it. done must be called when the call ends.
// When a client reuses an id, the newest call owns it.
func (s *Server) track(ctx context.Context, id json.RawMessage) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	key := string(id)
	call := &inflightCall{cancel: cancel}

	s.mu.Lock()
	s.inflight[key] = call
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if s.inflight[key] == call {
			delete(s.inflight, key)
		}
		s.mu.Unlock()
		cancel()
	}
}

func (s *Server) cancel(params json.RawMessage) {
	var p CancelledParams
	if err := json.Unmarshal(params, &p); err != nil || len(p.RequestID) == 0 {
		return
	}
	s.mu.Lock()
	call, ok := s.inflight[string(p.RequestID)]
	s.mu.Unlock()
	if ok {
		s.logger.Info("tool call cancelled by client", zap.ByteString("id", p.RequestID), zap.String("reason", p.Reason))
		call.cancel()
	}
}

func (s *Server) write(out *lineWriter, msg *Message) {
	if msg == nil {
		return
	}
	if err := out.write(msg); err != nil {
		s.logger.Error("failed to write MCP response", zap.Error(err))
	}
}

func resultMessage(id json.RawMessage, result interface{}) *Message {
	return &Message{JSONRPC: jsonRPCVersion, ID: id, Result: result}
}

func errorMessage(id json.RawMessage, code int, message string, data interface{}) *Message {
	return &Message{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &ErrorResponse{Code: code, Message: message, Data: data},
	}
}

// lineWriter serializes whole messages, one per line.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lineWriter) write(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, err = lw.w.Write(data)
	return err
}
