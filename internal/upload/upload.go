// Package upload copies downloaded books to remote storage. Each target
// implements Uploader; New picks one from the configuration.
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/packtgrab/packtgrab/common"
	"github.com/packtgrab/packtgrab/pkg/config"
	"github.com/spf13/afero"
)

// DefaultDialTimeout bounds FTP and SFTP connection setup.
const DefaultDialTimeout = 30 * time.Second

// Uploader stores the local file at localPath in remoteDir under its base name.
type Uploader interface {
	Upload(ctx context.Context, localPath, remoteDir string) error
	Target() common.UploadTarget
}

// Error is a failed upload step. Use errors.As to inspect it.
type Error struct {
	// Target is the upload destination kind.
	Target common.UploadTarget
	// Op is the step that failed (e.g. "connect", "login", "chdir", "store").
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s", e.Target, e.Op, e.Cause.Error())
	}
	return fmt.Sprintf("%s %s", e.Target, e.Op)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(target common.UploadTarget, op string, cause error) *Error {
	return &Error{Target: target, Op: op, Cause: cause}
}

// Options tunes the network targets. Zero values use the defaults.
type Options struct {
	DialTimeout time.Duration
	// KnownHostsPath overrides common.KnownHostsPath for SFTP.
	KnownHostsPath string
	// Fs holds the local files. Defaults to the OS filesystem.
	Fs afero.Fs
}

func (o Options) fs() afero.Fs {
	if o.Fs != nil {
		return o.Fs
	}
	return afero.NewOsFs()
}

// openLocal opens p on fsys, falling back to the OS filesystem.
func openLocal(fsys afero.Fs, p string) (afero.File, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return fsys.Open(p)
}

func (o Options) dialTimeout() time.Duration {
	if o.DialTimeout > 0 {
		return o.DialTimeout
	}
	return DefaultDialTimeout
}

func (o Options) knownHosts() string {
	if o.KnownHostsPath != "" {
		return o.KnownHostsPath
	}
	return common.KnownHostsPath()
}

// New builds the uploader for target from cfg. A target whose settings
// are absent yields a *config.MissingKeyError.
func New(target common.UploadTarget, cfg *config.Config, opts Options) (Uploader, error) {
	switch target {
	case common.TargetDropbox:
		token, err := cfg.DropboxToken()
		if err != nil {
			return nil, err
		}
		return NewDropbox(token, opts), nil
	case common.TargetFTP:
		t, err := cfg.FTPTarget()
		if err != nil {
			return nil, err
		}
		return NewFTP(t, opts), nil
	case common.TargetSFTP:
		t, err := cfg.SFTPTarget()
		if err != nil {
			return nil, err
		}
		return NewSFTP(t, opts), nil
	}
	return nil, fmt.Errorf("unknown upload target %q", target)
}
