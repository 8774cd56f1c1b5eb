// Package webhook delivers lead events to the CRM automation endpoint.
// Deliveries are best-effort with bounded retries; the caller decides whether
// a failed delivery blocks the user flow (it never should).
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	EventLeadCreated = "lead.created"
	EventLeadUpdated = "lead.updated"
	EventQualifier   = "qualifier.submitted"

	// channelSiteForm marks submissions that arrived through the public site.
	channelSiteForm = "site_form"

	// statusWaitingContact is the CRM entry status for fresh submissions.
	statusWaitingContact = "WAITING_CONTACT"
)

type Client struct {
	url        string
	httpClient *http.Client
	maxRetries uint64
	backoff    time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithRetries(max uint64, backoff time.Duration) Option {
	return func(cl *Client) {
		cl.maxRetries = max
		cl.backoff = backoff
	}
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: http.DefaultClient,
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if a webhook URL is set.
func (c *Client) Configured() bool {
	return c.url != ""
}

// LeadPayload is the CRM notification for a lead create or update.
type LeadPayload struct {
	EventID   string `json:"event_id"`
	Event     string `json:"event"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Source    string `json:"source"`
	Provider  string `json:"provider"`
	Timestamp string `json:"timestamp"`
}

// QualifierAnswers carries the structured answers from the qualifier form.
type QualifierAnswers struct {
	Idea          string            `json:"idea"`
	DealType      string            `json:"deal_type"`
	City          string            `json:"city,omitempty"`
	RentalDetails string            `json:"rental_details,omitempty"`
	EventLocation string            `json:"event_location,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
}

// QualifierPayload is the CRM notification for a qualifier submission.
type QualifierPayload struct {
	EventID   string           `json:"event_id"`
	Event     string           `json:"event"`
	Channel   string           `json:"channel"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Phone     string           `json:"phone"`
	Answers   QualifierAnswers `json:"answers"`
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
}

// SendLead delivers a lead event, retrying transient failures.
func (c *Client) SendLead(ctx context.Context, event string, name, company, email, phone, source, provider string) error {
	if !c.Configured() {
		return fmt.Errorf("webhook client not configured: missing URL")
	}
	return c.post(ctx, LeadPayload{
		EventID:   uuid.NewString(),
		Event:     event,
		Name:      name,
		Company:   company,
		Email:     email,
		Phone:     phone,
		Source:    source,
		Provider:  provider,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendQualifier delivers a qualifier submission, retrying transient failures.
func (c *Client) SendQualifier(ctx context.Context, name, email, phone string, answers QualifierAnswers) error {
	if !c.Configured() {
		return fmt.Errorf("webhook client not configured: missing URL")
	}
	return c.post(ctx, QualifierPayload{
		EventID:   uuid.NewString(),
		Event:     EventQualifier,
		Channel:   channelSiteForm,
		Name:      name,
		Email:     email,
		Phone:     phone,
		Answers:   answers,
		Status:    statusWaitingContact,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	backoff = retry.WithCappedDuration(10*time.Second, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("deliver webhook: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode < 400:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return retry.RetryableError(fmt.Errorf("webhook endpoint error: status %d", resp.StatusCode))
		default:
			return fmt.Errorf("webhook rejected: status %d", resp.StatusCode)
		}
	})
}
