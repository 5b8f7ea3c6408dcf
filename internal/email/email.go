package email

import (
	"context"
	"fmt"
	"strings"

	sp "github.com/SparkPost/gosparkpost"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Address struct {
	Name  string
	Email string
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Mailer sends a single transactional HTML email.
type Mailer interface {
	SendHTMLEmail(ctx context.Context, to Address, subject, html string) error
}

// Client delivers mail through the SparkPost transmissions API.
type Client struct {
	sp      *sp.Client
	noReply Address
}

func NewClient(apiKey, baseURL, noReplyAddress, siteName string) (*Client, error) {
	var c sp.Client
	err := c.Init(&sp.Config{
		BaseUrl:    baseURL,
		ApiKey:     apiKey,
		ApiVersion: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to init sparkpost client")
	}
	return &Client{
		sp:      &c,
		noReply: Address{Name: siteName, Email: noReplyAddress},
	}, nil
}

func (e *Client) SendHTMLEmail(ctx context.Context, to Address, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &sp.Transmission{
		Recipients: []string{to.Email},
		Content: sp.Content{
			From:    sp.From{Email: e.noReply.Email, Name: e.noReply.Name},
			Subject: subject,
			HTML:    html,
		},
	}
	id, res, err := e.sp.Send(tx)
	if err != nil {
		return errors.Wrapf(err, "unable to send email to %s", to.Email)
	}
	if res != nil && res.HTTP != nil && res.HTTP.StatusCode >= 400 {
		return errors.Errorf("got status code %d when sending email %s", res.HTTP.StatusCode, id)
	}
	return nil
}

// LogClient writes emails to the log instead of sending them. It is used in
// dev when no SparkPost key is configured.
type LogClient struct {
	logger zerolog.Logger
}

func NewLogClient(logger zerolog.Logger) *LogClient {
	return &LogClient{logger: logger}
}

func (l *LogClient) SendHTMLEmail(ctx context.Context, to Address, subject, html string) error {
	l.logger.Info().
		Str("to", to.String()).
		Str("subject", subject).
		Str("body", strings.TrimSpace(html)).
		Msg("email not sent, no sparkpost key configured")
	return nil
}
