// Package mcp exposes the engine as an MCP server, so agent hosts can drive
// conversations through tools instead of a chat transport.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/runtime"
)

// TurnResponse is the structured result of a conversation tool call.
type TurnResponse struct {
	Text    string   `json:"text" jsonschema_description:"The bot's reply"`
	Options []string `json:"options,omitempty" jsonschema_description:"Accepted answers for the next turn, if restricted"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    *runtime.Engine
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server over the engine.
func NewServer(engine *runtime.Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("parley-mcp", strings.TrimSpace(parley.Version)),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send a text message to the bot on behalf of an identity and get the reply."),
		mcp.WithString("identity", mcp.Required(), mcp.Description("Stable identity of the conversation owner")),
		mcp.WithString("text", mcp.Required(), mcp.Description("The message text")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSendMessage))

	resetTool := mcp.NewTool("reset_conversation",
		mcp.WithDescription("Abandon the identity's active conversation, if any."),
		mcp.WithString("identity", mcp.Required(), mcp.Description("Stable identity of the conversation owner")),
		mcp.WithOutputSchema[TurnResponse](),
	)
	s.mcpServer.AddTool(resetTool, mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("list_intents",
		mcp.WithDescription("List the commands the bot understands."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type intentInfo struct {
			Name    string   `json:"name"`
			Kind    string   `json:"kind"`
			Samples []string `json:"samples,omitempty"`
		}
		defs := s.engine.Catalog().Intents()
		infos := make([]intentInfo, 0, len(defs))
		for _, def := range defs {
			infos = append(infos, intentInfo{
				Name:    def.Name,
				Kind:    string(def.Kind),
				Samples: def.Samples,
			})
		}
		jsonBytes, _ := json.Marshal(infos)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	identity, _ := args["identity"].(string)
	text, _ := args["text"].(string)
	if identity == "" || text == "" {
		return TurnResponse{}, fmt.Errorf("identity and text are required")
	}

	reply, err := s.engine.HandleTurn(ctx, identity, text)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("turn failed: %w", err)
	}
	return TurnResponse{Text: reply.Text, Options: reply.Options}, nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TurnResponse, error) {
	identity, _ := args["identity"].(string)
	if identity == "" {
		return TurnResponse{}, fmt.Errorf("identity is required")
	}

	reply, err := s.engine.Reset(ctx, identity)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("reset failed: %w", err)
	}
	return TurnResponse{Text: reply.Text}, nil
}
