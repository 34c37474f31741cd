package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hoffkamp/bureau/internal/model"
)

const defaultAPIURL = "https://api.postmarkapp.com/email"

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	apiURL      string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithAPIURL points the client at a different Postmark endpoint. Tests use
// this to capture outgoing mail.
func WithAPIURL(url string) Option {
	return func(cl *Client) {
		cl.apiURL = url
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     baseURL,
		apiURL:      defaultAPIURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendShareNotice tells a grantee that a note was shared with them.
func (c *Client) SendShareNotice(toEmail, ownerName string, n model.Note, permission string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	title := n.Title
	if title == "" {
		title = "an untitled note"
	}

	verb := "view"
	if permission == model.PermissionEdit {
		verb = "view and edit"
	}

	subject := fmt.Sprintf("%s shared a note with you", ownerName)
	link := fmt.Sprintf("%s/notes/%d", c.baseURL, n.ID)
	textBody := fmt.Sprintf("%s shared %q with you. You can %s it here:\n\n%s",
		ownerName, title, verb, link)
	htmlBody := fmt.Sprintf(
		`<p>%s shared <strong>%s</strong> with you. You can %s it <a href="%s">here</a>.</p>`,
		ownerName, title, verb, link,
	)

	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

// SendGlobalShareNotice tells a grantee that another user opened their whole
// organizer to them.
func (c *Client) SendGlobalShareNotice(toEmail, granterName string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing server token")
	}

	subject := fmt.Sprintf("%s shared their notes with you", granterName)
	link := fmt.Sprintf("%s/notes", c.baseURL)
	textBody := fmt.Sprintf("%s made their notes visible to you:\n\n%s", granterName, link)
	htmlBody := fmt.Sprintf(
		`<p>%s made their notes visible to you. See them <a href="%s">here</a>.</p>`,
		granterName, link,
	)

	return c.send(postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	})
}

func (c *Client) send(payload postmarkEmail) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", c.apiURL, bytes.NewReader(body))
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
