package cmd

import (
	"io"

	cmdcommon "github.com/packtgrab/packtgrab/cmd/common"
	"github.com/vbauerster/mpb/v8"
)

// barProgress shows one mpb bar per download.
type barProgress struct {
	p *mpb.Progress
}

func newBarProgress() *barProgress {
	return &barProgress{p: mpb.New(mpb.WithWidth(40))}
}

func (b *barProgress) Track(name string, total int64, r io.Reader) io.ReadCloser {
	bar := cmdcommon.InitBar(b.p, name, total)
	return &trackedBody{ReadCloser: bar.ProxyReader(r), bar: bar}
}

// Wait blocks until every bar has been rendered for the last time.
func (b *barProgress) Wait() {
	b.p.Wait()
}

type trackedBody struct {
	io.ReadCloser
	bar *mpb.Bar
}

// Close completes the bar at the byte count actually read, which also
// covers downloads of unknown size.
func (t *trackedBody) Close() error {
	err := t.ReadCloser.Close()
	t.bar.SetTotal(-1, true)
	return err
}
