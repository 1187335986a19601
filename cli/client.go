package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/thinkarr/internal/domain"
	"github.com/xiaot623/thinkarr/internal/transport/stream"
)

// resultPreview caps how much of a tool result is printed.
const resultPreview = 200

// frame is any event the server streams.
type frame struct {
	Type      domain.EventType `json:"type"`
	Content   string           `json:"content"`
	ToolName  string           `json:"toolName"`
	Arguments string           `json:"arguments"`
	Result    string           `json:"result"`
	Message   string           `json:"message"`
}

// Client talks to a thinkarr server as one user.
type Client struct {
	server string
	userID string
	http   *http.Client
	conn   *websocket.Conn
}

// NewClient creates a client for the server at base URL server.
func NewClient(server, userID string) *Client {
	return &Client{
		server: strings.TrimRight(server, "/"),
		userID: userID,
		http:   http.DefaultClient,
	}
}

// CreateConversation starts a new conversation and returns its id.
func (c *Client) CreateConversation(ctx context.Context, title string) (string, error) {
	body, _ := json.Marshal(domain.CreateConversationRequest{Title: title})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/v1/conversations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", c.userID)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("create conversation: %s: %s", resp.Status, strings.TrimSpace(string(data)))
	}
	var conv domain.Conversation
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return "", fmt.Errorf("decode conversation: %w", err)
	}
	return conv.ID, nil
}

// Connect opens the chat WebSocket.
func (c *Client) Connect(ctx context.Context) error {
	url := "ws" + strings.TrimPrefix(c.server, "http") + "/v1/chat/ws"
	header := http.Header{}
	header.Set("X-User-Id", c.userID)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return fmt.Errorf("dial: %s", resp.Status)
		}
		return fmt.Errorf("dial: %w", err)
	}
	c.conn = conn
	return nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Send starts a turn.
func (c *Client) Send(req domain.TurnRequest) error {
	return c.conn.WriteJSON(req)
}

// ReadTurn prints the events of one turn to out until the done marker.
func (c *Client) ReadTurn(out io.Writer) error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if string(data) == stream.DoneMarker {
			return nil
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("unmarshal frame: %w", err)
		}
		printFrame(out, f)
	}
}

func printFrame(out io.Writer, f frame) {
	switch f.Type {
	case domain.EventTypeTextDelta:
		fmt.Fprint(out, f.Content)
	case domain.EventTypeToolCallStart:
		fmt.Fprintf(out, "[tool] %s %s\n", f.ToolName, f.Arguments)
	case domain.EventTypeToolResult:
		fmt.Fprintf(out, "[result] %s\n", preview(f.Result))
	case domain.EventTypeError:
		fmt.Fprintf(out, "\n[error] %s\n", f.Message)
	case domain.EventTypeDone:
		fmt.Fprintln(out)
	}
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= resultPreview {
		return s
	}
	return string([]rune(s)[:resultPreview]) + "..."
}
