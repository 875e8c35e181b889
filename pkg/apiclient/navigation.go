package apiclient

import (
	"context"
	"strconv"
	"time"
)

// Current describes the navigation cursor.
type Current struct {
	Path      string `json:"path"`
	Strategy  string `json:"strategy"`
	SessionID string `json:"session_id"`
}

// Image describes a decoded image.
type Image struct {
	Path    string    `json:"path"`
	Format  string    `json:"format"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// MoveResult reports how far the cursor moved.
type MoveResult struct {
	Requested int    `json:"requested"`
	Moved     int    `json:"moved"`
	Current   string `json:"current"`
}

// Window lists the files around the cursor in sequence order.
type Window struct {
	Previous []string `json:"previous"`
	Current  string   `json:"current"`
	Next     []string `json:"next"`
}

// Stats reports the image cache.
type Stats struct {
	Entries   int `json:"entries"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Groups    int `json:"groups"`
	Recent    int `json:"recent"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Current returns the cursor.
func (c *Client) Current(ctx context.Context) (*Current, error) {
	var cur Current
	if err := c.get(ctx, "/api/v1/current", &cur); err != nil {
		return nil, err
	}
	return &cur, nil
}

// SetCurrent points the cursor at path.
func (c *Client) SetCurrent(ctx context.Context, path string) (*Current, error) {
	var cur Current
	if err := c.put(ctx, "/api/v1/current", map[string]string{"path": path}, &cur); err != nil {
		return nil, err
	}
	return &cur, nil
}

// Display decodes the current image.
func (c *Client) Display(ctx context.Context) (*Image, error) {
	var img Image
	if err := c.get(ctx, "/api/v1/display", &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Next advances to the following image.
func (c *Client) Next(ctx context.Context) (*Image, error) {
	var img Image
	if err := c.post(ctx, "/api/v1/next", nil, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Previous steps back to the preceding image.
func (c *Client) Previous(ctx context.Context) (*Image, error) {
	var img Image
	if err := c.post(ctx, "/api/v1/previous", nil, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Move moves the cursor by diff images.
func (c *Client) Move(ctx context.Context, diff int) (*MoveResult, error) {
	var res MoveResult
	if err := c.post(ctx, "/api/v1/move", map[string]int{"diff": diff}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Reload rescans the browsed directories.
func (c *Client) Reload(ctx context.Context) (*Current, error) {
	var cur Current
	if err := c.post(ctx, "/api/v1/reload", nil, &cur); err != nil {
		return nil, err
	}
	return &cur, nil
}

// SwitchStrategy changes the navigation strategy, keeping the current file.
func (c *Client) SwitchStrategy(ctx context.Context, strategy string) (*Current, error) {
	var cur Current
	if err := c.put(ctx, "/api/v1/strategy", map[string]string{"strategy": strategy}, &cur); err != nil {
		return nil, err
	}
	return &cur, nil
}

// Window returns up to size files on each side of the cursor.
func (c *Client) Window(ctx context.Context, size int) (*Window, error) {
	var win Window
	if err := c.get(ctx, "/api/v1/window?size="+strconv.Itoa(size), &win); err != nil {
		return nil, err
	}
	return &win, nil
}

// Stats returns the image cache statistics.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := c.get(ctx, "/api/v1/stats", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Health checks that the server is alive.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}
