package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/folio/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for Folio resources.
	uriScheme = "folio://"

	indexURI = uriScheme + "index"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource describing the index.
	s.server.AddResource(&mcp.Resource{
		URI:         indexURI,
		Name:        "index",
		Description: "Statistics of the document index: model, dimensions, passages and documents",
		MIMEType:    "application/json",
	}, s.handleIndexResource)

	if s.ports.Conversation == nil {
		return
	}

	// Template for a conversation with its messages.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "conversations/{conversationId}",
		Name:        "conversation",
		Description: "A saved conversation with every message and its sources",
		MIMEType:    "application/json",
	}, s.handleConversationResource)
}

// handleIndexResource returns index statistics.
func (s *Server) handleIndexResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	info, err := s.ports.Retrieval.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading index stats: %w", err)
	}
	return jsonResource(req.Params.URI, info)
}

type messageInfo struct {
	Role      string                     `json:"role"`
	Content   string                     `json:"content"`
	CreatedAt string                     `json:"created_at"`
	Sources   []domain.SourceAttribution `json:"sources,omitempty"`
}

type conversationInfo struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CreatedAt string        `json:"created_at"`
	UpdatedAt string        `json:"updated_at"`
	Messages  []messageInfo `json:"messages"`
}

// handleConversationResource returns one conversation of the server's owner.
func (s *Server) handleConversationResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract conversationId from URI: folio://conversations/{conversationId}
	id := extractConversationID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	conv, err := s.ports.Conversation.Get(ctx, id, s.ports.Owner)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}

	info := conversationInfo{
		ID:        conv.ID,
		Title:     conv.Title,
		CreatedAt: formatTime(conv.CreatedAt),
		UpdatedAt: formatTime(conv.UpdatedAt),
		Messages:  make([]messageInfo, 0, len(conv.Messages)),
	}
	for _, msg := range conv.Messages {
		m := messageInfo{
			Role:      string(msg.Role()),
			Content:   msg.Content(),
			CreatedAt: formatTime(msg.Timestamp()),
		}
		if reply, ok := msg.(domain.AssistantMessage); ok {
			m.Sources = reply.Sources
		}
		info.Messages = append(info.Messages, m)
	}

	return jsonResource(req.Params.URI, info)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func conversationURI(id string) string {
	return uriScheme + "conversations/" + id
}

// extractConversationID extracts the id from a URI like folio://conversations/{conversationId}.
func extractConversationID(uri string) string {
	const prefix = uriScheme + "conversations/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
