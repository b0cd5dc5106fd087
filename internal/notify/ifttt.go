package notify

import (
	"context"
	"net/url"

	"github.com/packtgrab/packtgrab/common"
)

// IFTTT posts the message as value1 to a maker webhook URL.
type IFTTT struct {
	webhook string
	opts    options
}

func NewIFTTT(webhook string, opts ...Option) *IFTTT {
	return &IFTTT{webhook: webhook, opts: buildOptions(opts)}
}

func (n *IFTTT) Channel() common.NotifyChannel { return common.ChannelIFTTT }

func (n *IFTTT) Notify(ctx context.Context, msg string) error {
	req, err := newFormRequest(n.webhook, url.Values{"value1": {msg}})
	if err != nil {
		return err
	}
	return postForm(ctx, n.opts.client, common.ChannelIFTTT, req)
}
