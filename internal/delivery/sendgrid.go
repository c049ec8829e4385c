// Package delivery sends assembled newsletters through the SendGrid v3
// mail API.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"finbrief/internal/report"
)

// Mailer delivers a rendered issue to a recipient list.
type Mailer interface {
	Send(ctx context.Context, n report.Newsletter, recipients []string) (SendReport, error)
}

// Options parameterise the SendGrid sender.
type Options struct {
	APIKey     string
	BaseURL    string
	Sender     string
	SenderName string
	BatchSize  int
	Timeout    time.Duration
}

// SendReport 汇总一次投递的批次结果。
type SendReport struct {
	Batches    int
	Delivered  int
	FailedRecv int
}

// Succeeded reports whether at least one batch went out.
func (r SendReport) Succeeded() bool { return r.Delivered > 0 }

// Sender 通过 SendGrid 分批推送邮件。
type Sender struct {
	opts    Options
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewSender constructs a SendGrid sender.
func NewSender(opts Options, logger zerolog.Logger) *Sender {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}

	return &Sender{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "delivery").Logger(),
	}
}

var _ Mailer = (*Sender)(nil)

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailPersonalization struct {
	To  []mailAddress `json:"to"`
	BCC []mailAddress `json:"bcc,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailRequest struct {
	Personalizations []mailPersonalization `json:"personalizations"`
	From             mailAddress           `json:"from"`
	Subject          string                `json:"subject"`
	Content          []mailContent         `json:"content"`
}

// Send chunks the recipient list into batches and issues one request per
// batch. The primary "to" is always the sender and real recipients ride as
// BCC so the list is never exposed. A failed batch is logged and excluded
// from the delivered count; the run succeeds when at least one batch does.
func (s *Sender) Send(ctx context.Context, n report.Newsletter, recipients []string) (SendReport, error) {
	var rep SendReport

	if s.opts.APIKey == "" || s.opts.Sender == "" {
		return rep, fmt.Errorf("sendgrid api key and sender address required")
	}
	if len(recipients) == 0 {
		return rep, fmt.Errorf("no recipients to send to")
	}
	if n.HTML == "" {
		return rep, fmt.Errorf("newsletter content is empty")
	}

	subject := fmt.Sprintf("%s - %s", n.Title, n.Date.Format("2006-01-02"))

	for start := 0; start < len(recipients); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		batch := recipients[start:end]
		rep.Batches++

		if err := s.sendBatch(ctx, subject, n.HTML, batch); err != nil {
			s.logger.Error().Err(err).Int("batch", rep.Batches).Int("size", len(batch)).Msg("batch send failed")
			rep.FailedRecv += len(batch)
			continue
		}
		rep.Delivered += len(batch)
	}

	s.logger.Info().
		Int("delivered", rep.Delivered).
		Int("recipients", len(recipients)).
		Msg("newsletter delivery finished")

	if !rep.Succeeded() {
		return rep, fmt.Errorf("all %d batches failed", rep.Batches)
	}
	return rep, nil
}

func (s *Sender) sendBatch(ctx context.Context, subject, htmlBody string, batch []string) error {
	bcc := make([]mailAddress, 0, len(batch))
	for _, email := range batch {
		bcc = append(bcc, mailAddress{Email: email})
	}

	payload := mailRequest{
		Personalizations: []mailPersonalization{{
			To:  []mailAddress{{Email: s.opts.Sender}},
			BCC: bcc,
		}},
		From:    mailAddress{Email: s.opts.Sender, Name: s.opts.SenderName},
		Subject: subject,
		Content: []mailContent{{Type: "text/html", Value: htmlBody}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("sendgrid 响应码异常: %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
