// Package client is a small consumer of the server API. It keeps a
// channel view fresh through the poller and pauses the refresh cadence
// while its own mutations are in flight.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/devchat/devchat/internal/poller"
	"github.com/devchat/devchat/internal/types"
)

type Client struct {
	log     *log.Logger
	baseURL string
	http    *http.Client

	mu      sync.Mutex
	channel types.Channel
	poll    *poller.Poller
}

func New(logger *log.Logger, baseURL string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	return &Client{
		log:     logger,
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s", method, path, apiErr.Message)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Login(ctx context.Context, email, password string) (types.User, error) {
	var user types.User
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &user)

	return user, err
}

// Watch starts polling the named channel. The view stays fresh within
// one interval while idle; leave the view with Leave.
func (c *Client) Watch(ctx context.Context, channelName string, interval time.Duration) error {
	p := poller.New(c.log, interval, func(ctx context.Context) error {
		return c.refresh(ctx, channelName)
	})

	c.mu.Lock()
	if c.poll != nil {
		c.mu.Unlock()
		return fmt.Errorf("already watching a channel")
	}
	c.poll = p
	c.mu.Unlock()

	// refresh stores the snapshot under c.mu, so it must run unlocked
	if err := c.refresh(ctx, channelName); err != nil {
		c.mu.Lock()
		c.poll = nil
		c.mu.Unlock()
		return err
	}

	go p.Run(ctx)
	return nil
}

// Leave tears the polling loop down.
func (c *Client) Leave() {
	c.mu.Lock()
	poll := c.poll
	c.poll = nil
	c.mu.Unlock()

	if poll != nil {
		poll.Stop()
	}
}

// Channel returns the latest fetched snapshot of the watched channel.
func (c *Client) Channel() types.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func (c *Client) refresh(ctx context.Context, channelName string) error {
	var channel types.Channel
	if err := c.do(ctx, http.MethodGet, "/api/channels/"+url.PathEscape(channelName), nil, &channel); err != nil {
		return err
	}

	c.mu.Lock()
	c.channel = channel
	c.mu.Unlock()

	return nil
}

// mutate wraps a mutation so the refresh cadence is paused until it
// settles, keeping stale re-fetches from racing the write.
func (c *Client) mutate(fn func() error) error {
	c.mu.Lock()
	poll := c.poll
	c.mu.Unlock()

	if poll != nil {
		poll.Pause()
		defer poll.Resume()
	}

	return fn()
}

func (c *Client) SendMessage(ctx context.Context, channelName, text string) (types.Message, error) {
	var msg types.Message
	err := c.mutate(func() error {
		return c.do(ctx, http.MethodPost, "/api/channels/"+url.PathEscape(channelName)+"/messages",
			map[string]string{"text": text}, &msg)
	})

	return msg, err
}

func (c *Client) CreateChannel(ctx context.Context, name, description string, isPrivate bool) (types.Channel, error) {
	var channel types.Channel
	err := c.mutate(func() error {
		return c.do(ctx, http.MethodPost, "/api/channels", map[string]any{
			"name":        name,
			"description": description,
			"is_private":  isPrivate,
		}, &channel)
	})

	return channel, err
}

func (c *Client) SearchChannels(ctx context.Context, filter string) ([]types.ChannelSummary, error) {
	path := "/api/channels"
	if filter != "" {
		path += "?search=" + url.QueryEscape(filter)
	}

	var resp struct {
		Status   string                 `json:"status"`
		Channels []types.ChannelSummary `json:"channels"`
		Message  string                 `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "idle" {
		return nil, fmt.Errorf("search results unavailable: %s", resp.Message)
	}

	return resp.Channels, nil
}
