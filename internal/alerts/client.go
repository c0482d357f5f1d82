package alerts

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client calls the alert scheduler over its webhook endpoint.
type Client struct {
	url    string
	client *resty.Client
}

// Ensure Client implements Scheduler
var _ Scheduler = (*Client)(nil)

type scheduleRequest struct {
	ReportID       string    `json:"report_id"`
	OrganizationID string    `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewClient creates a scheduler client for the given endpoint.
func NewClient(schedulerURL string) *Client {
	return &Client{
		url:    schedulerURL,
		client: resty.New().SetTimeout(10 * time.Second),
	}
}

// Schedule asks the downstream scheduler to set up timeline and
// escalation alerts for a newly created report.
func (c *Client) Schedule(ctx context.Context, reportID, organizationID string, createdAt time.Time) error {
	if c.url == "" {
		return fmt.Errorf("alert scheduler URL is not configured")
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(&scheduleRequest{
			ReportID:       reportID,
			OrganizationID: organizationID,
			CreatedAt:      createdAt,
		}).
		Post(c.url)

	if err != nil {
		return fmt.Errorf("failed to call alert scheduler: %w", err)
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted {
		return fmt.Errorf("alert scheduler returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}
