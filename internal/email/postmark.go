package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mtmsolution/site/internal/model"
)

// Client sends transactional notifications through Postmark.
type Client struct {
	serverToken string
	fromEmail   string
	notifyEmail string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// NewClient builds a Postmark client. notifyEmail is the internal inbox that
// receives lead and security notifications.
func NewClient(serverToken, fromEmail, notifyEmail string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		notifyEmail: notifyEmail,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token and notify address are set.
func (c *Client) Configured() bool {
	return c.serverToken != "" && c.notifyEmail != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendLeadNotification tells the sales inbox about a new or updated lead.
func (c *Client) SendLeadNotification(ld *model.Lead, created bool) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	subject := fmt.Sprintf("Lead atualizado: %s", ld.Name)
	if created {
		subject = fmt.Sprintf("Novo lead: %s", ld.Name)
	}

	textBody := fmt.Sprintf(
		"Nome: %s\nEmpresa: %s\nEmail: %s\nTelefone: %s\nOrigem: %s\n",
		ld.Name, ld.Company, ld.Email, ld.PhoneE164, ld.Source,
	)
	htmlBody := fmt.Sprintf(
		`<p><strong>Nome:</strong> %s</p><p><strong>Empresa:</strong> %s</p><p><strong>Email:</strong> %s</p><p><strong>Telefone:</strong> %s</p><p><strong>Origem:</strong> %s</p>`,
		ld.Name, ld.Company, ld.Email, ld.PhoneE164, ld.Source,
	)

	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       c.notifyEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

// SendLockoutNotification alerts the internal inbox that an admin account was
// locked after repeated failed logins.
func (c *Client) SendLockoutNotification(username, ip string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	textBody := fmt.Sprintf(
		"A conta administrativa %q foi bloqueada por 15 minutos após tentativas de login malsucedidas.\n\nIP de origem: %s\n",
		username, ip,
	)
	htmlBody := fmt.Sprintf(
		`<p>A conta administrativa <strong>%s</strong> foi bloqueada por 15 minutos após tentativas de login malsucedidas.</p><p>IP de origem: %s</p>`,
		username, ip,
	)

	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       c.notifyEmail,
		Subject:  fmt.Sprintf("Conta admin bloqueada: %s", username),
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

func (c *Client) send(payload postmarkEmail) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.postmarkapp.com/email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
