package upload

import (
	"context"
	"net"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/packtgrab/packtgrab/common"
	"github.com/packtgrab/packtgrab/pkg/config"
	"github.com/spf13/afero"
)

// FTP stores files on a plain FTP server in binary mode.
type FTP struct {
	addr        string
	user        string
	pass        string
	dialTimeout time.Duration
	fs          afero.Fs
}

func NewFTP(t config.FTP, opts Options) *FTP {
	return &FTP{
		addr:        withDefaultPort(t.Server, "21"),
		user:        t.User,
		pass:        t.Pass,
		dialTimeout: opts.dialTimeout(),
		fs:          opts.fs(),
	}
}

func (f *FTP) Target() common.UploadTarget { return common.TargetFTP }

func (f *FTP) connect(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(f.addr,
		ftp.DialWithTimeout(f.dialTimeout),
		ftp.DialWithContext(ctx),
	)
	if err != nil {
		return nil, newError(common.TargetFTP, "connect", err)
	}
	if err := conn.Login(f.user, f.pass); err != nil {
		conn.Quit()
		return nil, newError(common.TargetFTP, "login", err)
	}
	return conn, nil
}

// Upload changes into remoteDir and stores localPath under its base name.
func (f *FTP) Upload(ctx context.Context, localPath, remoteDir string) error {
	src, err := openLocal(f.fs, localPath)
	if err != nil {
		return newError(common.TargetFTP, "open", err)
	}
	defer src.Close()

	conn, err := f.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.Type(ftp.TransferTypeBinary); err != nil {
		return newError(common.TargetFTP, "type", err)
	}
	if remoteDir != "" {
		if err := conn.ChangeDir(remoteDir); err != nil {
			return newError(common.TargetFTP, "chdir", err)
		}
	}
	if err := conn.Stor(filepath.Base(localPath), src); err != nil {
		return newError(common.TargetFTP, "store", err)
	}
	return nil
}

// withDefaultPort appends port when server carries none.
func withDefaultPort(server, port string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, port)
}
