package notify

import (
	"context"
	"fmt"
	"net/url"

	"github.com/packtgrab/packtgrab/common"
	"github.com/packtgrab/packtgrab/pkg/config"
)

// Mailgun sends the message as a plain-text email through the messages API.
type Mailgun struct {
	relay config.Mailgun
	opts  options
}

func NewMailgun(relay config.Mailgun, opts ...Option) *Mailgun {
	return &Mailgun{relay: relay, opts: buildOptions(opts)}
}

func (n *Mailgun) Channel() common.NotifyChannel { return common.ChannelMailgun }

func (n *Mailgun) endpoint() string {
	return fmt.Sprintf("%s/%s/messages", n.opts.mailgunBase, n.relay.Domain)
}

func (n *Mailgun) Notify(ctx context.Context, msg string) error {
	form := url.Values{
		"from":    {fmt.Sprintf("PacktPub Notification <packtpub@%s>", n.relay.Domain)},
		"to":      {fmt.Sprintf("<%s>", n.relay.To)},
		"subject": {mailSubject},
		"text":    {msg},
	}
	req, err := newFormRequest(n.endpoint(), form)
	if err != nil {
		return err
	}
	req.SetBasicAuth("api", n.relay.API)
	return postForm(ctx, n.opts.client, common.ChannelMailgun, req)
}
