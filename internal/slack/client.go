package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://slack.com/api"

// Client calls the Slack Web API. The bot token backs workspace-level
// reads such as membership lookups; per-user actions take the user's
// own token per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
}

// New creates a Web API client authenticated with the bot token.
func New(botToken string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		botToken:   botToken,
	}
}

// NewWithBaseURL is used by tests to point the client at a fake server.
func NewWithBaseURL(botToken, baseURL string) *Client {
	c := New(botToken)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

type membersResponse struct {
	OK               bool     `json:"ok"`
	Error            string   `json:"error,omitempty"`
	Members          []string `json:"members"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// ChannelMembers resolves the full membership of a conversation,
// following pagination cursors.
func (c *Client) ChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	var members []string
	cursor := ""

	for {
		params := url.Values{"channel": {channelID}, "limit": {"200"}}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp membersResponse
		if err := c.get(ctx, "conversations.members", params, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, fmt.Errorf("conversations.members: %s", resp.Error)
		}

		members = append(members, resp.Members...)
		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			return members, nil
		}
	}
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	TS    string `json:"ts,omitempty"`
}

// PostMessage sends text to a channel on behalf of the owner of
// userToken.
func (c *Client) PostMessage(ctx context.Context, userToken, channelID, text string) error {
	body, err := json.Marshal(map[string]string{
		"channel": channelID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+userToken)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	var resp postMessageResponse
	if err := c.do(req, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("chat.postMessage: %s", resp.Error)
	}
	return nil
}

func (c *Client) get(ctx context.Context, method string, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+method+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack api status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("slack api decode: %w", err)
	}
	return nil
}
