package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Iron-Ham/waitroom/internal/tools"
)

// defaultRequestTimeout bounds the short HTTP calls. Waits run over the
// websocket and are bounded by their own timeout.
const defaultRequestTimeout = 10 * time.Second

// ToolInfo is a tool descriptor as seen by a client.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Progress is a heartbeat received during RegisterAndWait.
type Progress = ProgressParams

// Client calls a waitroom server.
type Client struct {
	baseURL    url.URL
	httpClient *http.Client
	dialer     *websocket.Dialer

	requestTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for short calls. The client is
// copied, never modified; the copy's Timeout is the request timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRequestTimeout sets the timeout of the short HTTP calls, regardless
// of option order.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.requestTimeout = timeout
	}
}

// NewClient creates a client for the server at addr (host:port).
func NewClient(addr string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    url.URL{Scheme: "http", Host: addr},
		httpClient: http.DefaultClient,
		dialer:     websocket.DefaultDialer,

		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	hc.Timeout = c.requestTimeout
	c.httpClient = &hc
	return c
}

func (c *Client) endpoint(path string) string {
	u := c.baseURL
	u.Path = path
	return u.String()
}

// ListTools fetches the tool descriptors.
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/tools"), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var out []ToolInfo
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats fetches the server's activity counters.
func (c *Client) Stats(ctx context.Context) (StatsSnapshot, error) {
	var out StatsSnapshot
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/stats"), nil)
	if err != nil {
		return out, fmt.Errorf("create request: %w", err)
	}
	err = c.do(req, &out)
	return out, err
}

// SendMessage calls send_message.
func (c *Client) SendMessage(ctx context.Context, content, mode string) (tools.SendResult, error) {
	var out tools.SendResult
	err := c.callHTTP(ctx, tools.NameSendMessage, tools.SendMessageParams{Content: content, Mode: mode}, &out)
	return out, err
}

// CheckStatus calls check_status.
func (c *Client) CheckStatus(ctx context.Context) (tools.StatusResult, error) {
	var out tools.StatusResult
	err := c.callHTTP(ctx, tools.NameCheckStatus, tools.CheckStatusParams{}, &out)
	return out, err
}

func (c *Client) callHTTP(ctx context.Context, name string, params, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/tools/"+name), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error != nil {
			return eb.Error
		}
		return &RPCError{
			Code:    codeForStatus(resp.StatusCode),
			Message: fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// frame is any server-to-client websocket message.
type frame struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RegisterAndWait calls register_and_wait over the websocket, passing each
// heartbeat to onProgress (which may be nil). A nil timeoutSeconds uses the
// server default. Canceling ctx closes the socket, which cancels the wait on
// the server.
func (c *Client) RegisterAndWait(ctx context.Context, agentName string, timeoutSeconds *int, onProgress func(Progress)) (tools.WaitResult, error) {
	var out tools.WaitResult

	u := c.baseURL
	u.Scheme = "ws"
	u.Path = "/ws"
	ws, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return out, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer func() { _ = ws.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer stop()

	params, err := json.Marshal(tools.RegisterAndWaitParams{AgentName: agentName, TimeoutSeconds: timeoutSeconds})
	if err != nil {
		return out, fmt.Errorf("marshal params: %w", err)
	}
	const id = `1`
	if err := ws.WriteJSON(Request{ID: json.RawMessage(id), Method: tools.NameRegisterAndWait, Params: params}); err != nil {
		return out, fmt.Errorf("send request: %w", err)
	}

	for {
		var f frame
		if err := ws.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			return out, fmt.Errorf("read response: %w", err)
		}

		if f.Method == MethodProgress {
			if onProgress != nil {
				var p Progress
				if err := json.Unmarshal(f.Params, &p); err == nil {
					onProgress(p)
				}
			}
			continue
		}
		if string(f.ID) != id {
			continue
		}
		if f.Error != nil {
			return out, f.Error
		}
		if err := json.Unmarshal(f.Result, &out); err != nil {
			return out, fmt.Errorf("unmarshal result: %w", err)
		}
		_ = ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return out, nil
	}
}
