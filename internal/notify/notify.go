// Package notify announces the day's title and the claim outcome through
// an IFTTT maker webhook or a Mailgun email. Delivery succeeds only on an
// HTTP 200 response and is never retried.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/packtgrab/packtgrab/common"
	"github.com/packtgrab/packtgrab/pkg/config"
)

const (
	// DefaultMailgunBase is the Mailgun v3 API root.
	DefaultMailgunBase = "https://api.mailgun.net/v3"

	mailSubject = "Notification from PacktPub Grabber"

	defaultTimeout = 30 * time.Second
)

// Messages sent by the grab pipeline.
const (
	TitleFormat   = "Today's free book is [%s]"
	ClaimedFormat = "Claim Free book [%s] Successfully"
	ClaimFailed   = "Claim Failed. Check with your anti-captcha configuration"
)

// ErrNotDelivered matches every *StatusError.
var ErrNotDelivered = errors.New("notification not delivered")

// StatusError reports a non-200 answer from the notification endpoint.
type StatusError struct {
	Channel common.NotifyChannel
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s notification: %d %s", e.Channel, e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotDelivered
}

// Notifier delivers one plain-text message.
type Notifier interface {
	Notify(ctx context.Context, msg string) error
	Channel() common.NotifyChannel
}

type Option func(*options)

type options struct {
	client      *http.Client
	mailgunBase string
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithMailgunBase points the Mailgun notifier at another API root.
func WithMailgunBase(base string) Option {
	return func(o *options) { o.mailgunBase = strings.TrimRight(base, "/") }
}

func buildOptions(opts []Option) options {
	o := options{
		client:      &http.Client{Timeout: defaultTimeout},
		mailgunBase: DefaultMailgunBase,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds the notifier for channel from cfg. Absent settings yield a
// *config.MissingKeyError.
func New(channel common.NotifyChannel, cfg *config.Config, opts ...Option) (Notifier, error) {
	switch channel {
	case common.ChannelIFTTT:
		hook, err := cfg.IFTTTWebhook()
		if err != nil {
			return nil, err
		}
		return NewIFTTT(hook, opts...), nil
	case common.ChannelMailgun:
		relay, err := cfg.MailgunRelay()
		if err != nil {
			return nil, err
		}
		return NewMailgun(relay, opts...), nil
	}
	return nil, fmt.Errorf("unknown notify channel %q", channel)
}

func postForm(ctx context.Context, client *http.Client, channel common.NotifyChannel, req *http.Request) error {
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%s notification: %w", channel, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Channel: channel, Code: resp.StatusCode}
	}
	return nil
}

func newFormRequest(rawURL string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}
