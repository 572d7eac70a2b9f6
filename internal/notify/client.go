package notify

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client posts due-reminder digests to a configured webhook (typically
// a chat integration the shop front desk watches).
type Client struct {
	webhookURL string
	http       *resty.Client
}

// ReminderDigest is the webhook payload: the reminders due on one day.
type ReminderDigest struct {
	Date      string        `json:"date"` // YYYY-MM-DD
	Reminders []DigestEntry `json:"reminders"`
}

// DigestEntry is one reminder in a digest.
type DigestEntry struct {
	ID         string `json:"id"`
	CalendarID string `json:"calendar_id"`
	Notes      string `json:"notes"`
	JobID      string `json:"job_id,omitempty"`
}

// NewClient creates a webhook client. An empty URL yields a disabled
// client; Send becomes a no-op so callers need no nil checks.
func NewClient(webhookURL string) *Client {
	c := &Client{webhookURL: webhookURL}
	c.http = resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r.StatusCode() == 429 || (r.StatusCode() >= 500 && r.StatusCode() <= 504)
		})
	return c
}

// Enabled reports whether a webhook URL is configured.
func (c *Client) Enabled() bool {
	return c.webhookURL != ""
}

// Send posts a digest to the webhook.
func (c *Client) Send(digest ReminderDigest) error {
	if !c.Enabled() {
		return nil
	}
	resp, err := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(digest).
		Post(c.webhookURL)
	if err != nil {
		return fmt.Errorf("webhook post failed: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}
