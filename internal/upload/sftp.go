package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/packtgrab/packtgrab/common"
	"github.com/packtgrab/packtgrab/pkg/config"
	"github.com/pkg/sftp"
	"github.com/spf13/afero"
	"golang.org/x/crypto/ssh"
)

// SFTP stores files over SSH. Host keys are pinned on first use.
type SFTP struct {
	addr        string
	user        string
	pass        string
	keyPath     string
	knownHosts  string
	dialTimeout time.Duration
	fs          afero.Fs
}

func NewSFTP(t config.SFTP, opts Options) *SFTP {
	return &SFTP{
		addr:        withDefaultPort(t.Server, "22"),
		user:        t.User,
		pass:        t.Pass,
		keyPath:     t.Key,
		knownHosts:  opts.knownHosts(),
		dialTimeout: opts.dialTimeout(),
		fs:          opts.fs(),
	}
}

func (s *SFTP) Target() common.UploadTarget { return common.TargetSFTP }

// authMethods prefers the password; otherwise the private key at keyPath.
func (s *SFTP) authMethods() ([]ssh.AuthMethod, error) {
	if s.pass != "" {
		return []ssh.AuthMethod{ssh.Password(s.pass)}, nil
	}
	pemBytes, err := os.ReadFile(s.keyPath)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		var ppErr *ssh.PassphraseMissingError
		if errors.As(err, &ppErr) {
			return nil, fmt.Errorf("SSH key %q is passphrase-protected; passphrase-protected keys are not supported", s.keyPath)
		}
		return nil, err
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func (s *SFTP) connect(ctx context.Context) (*ssh.Client, *sftp.Client, error) {
	auth, err := s.authMethods()
	if err != nil {
		return nil, nil, newError(common.TargetSFTP, "auth", err)
	}
	cfg := &ssh.ClientConfig{
		User:            s.user,
		Auth:            auth,
		HostKeyCallback: trustOnFirstUse(s.knownHosts),
		Timeout:         s.dialTimeout,
	}

	d := net.Dialer{Timeout: s.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return nil, nil, newError(common.TargetSFTP, "connect", err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, s.addr, cfg)
	if err != nil {
		conn.Close()
		return nil, nil, newError(common.TargetSFTP, "handshake", err)
	}
	sshClient := ssh.NewClient(c, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, newError(common.TargetSFTP, "subsystem", err)
	}
	return sshClient, client, nil
}

// Upload writes localPath to remoteDir/<base name>, replacing any
// existing file. The copy stops when ctx is cancelled.
func (s *SFTP) Upload(ctx context.Context, localPath, remoteDir string) error {
	src, err := openLocal(s.fs, localPath)
	if err != nil {
		return newError(common.TargetSFTP, "open", err)
	}
	defer src.Close()

	sshClient, client, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer sshClient.Close()
	defer client.Close()

	stop := context.AfterFunc(ctx, func() { sshClient.Close() })
	defer stop()

	dst, err := client.Create(path.Join(remoteDir, filepath.Base(localPath)))
	if err != nil {
		return newError(common.TargetSFTP, "create", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return newError(common.TargetSFTP, "store", err)
	}
	if err := dst.Close(); err != nil {
		return newError(common.TargetSFTP, "store", err)
	}
	return nil
}
