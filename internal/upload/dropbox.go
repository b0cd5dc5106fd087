package upload

import (
	"context"
	"io"
	"path"
	"path/filepath"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/packtgrab/packtgrab/common"
	"github.com/spf13/afero"
)

// dropboxFiles is the slice of files.Client used here.
type dropboxFiles interface {
	Upload(arg *files.UploadArg, content io.Reader) (*files.FileMetadata, error)
}

// Dropbox uploads through the Dropbox HTTP API. Files are overwritten.
type Dropbox struct {
	client dropboxFiles
	fs     afero.Fs
}

func NewDropbox(token string, opts Options) *Dropbox {
	return &Dropbox{client: files.New(dropbox.Config{Token: token}), fs: opts.fs()}
}

func (d *Dropbox) Target() common.UploadTarget { return common.TargetDropbox }

// Upload sends localPath to <remoteDir>/<base name>. The SDK call itself
// cannot be cancelled; ctx is checked before it starts.
func (d *Dropbox) Upload(ctx context.Context, localPath, remoteDir string) error {
	if err := ctx.Err(); err != nil {
		return newError(common.TargetDropbox, "upload", err)
	}
	f, err := openLocal(d.fs, localPath)
	if err != nil {
		return newError(common.TargetDropbox, "open", err)
	}
	defer f.Close()

	arg := files.NewUploadArg(dropboxPath(remoteDir, filepath.Base(localPath)))
	arg.Mode = &files.WriteMode{Tagged: dropbox.Tagged{Tag: files.WriteModeOverwrite}}
	if _, err := d.client.Upload(arg, f); err != nil {
		return newError(common.TargetDropbox, "upload", err)
	}
	return nil
}

// dropboxPath joins dir and name into an absolute Dropbox path.
func dropboxPath(dir, name string) string {
	return path.Join("/", dir, name)
}
