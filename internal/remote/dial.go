// Package remote opens SFTP sessions for remote workspaces.
package remote

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Config configures a connection.
type Config struct {
	// Target is user@host[:port].
	Target         string
	IdentityFiles  []string
	KnownHostsFile string
	Timeout        time.Duration
}

// Session is an open SFTP session. Close releases both the SFTP and SSH
// connections.
type Session struct {
	Client *sftp.Client
	ssh    *ssh.Client
}

// Close closes the session.
func (s *Session) Close() error {
	var retErr error
	if s.Client != nil {
		if err := s.Client.Close(); err != nil {
			retErr = err
		}
	}
	if s.ssh != nil {
		if err := s.ssh.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}
	return retErr
}

var dialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

// Dial connects to cfg.Target and starts the SFTP subsystem. It never
// prompts: authentication uses the SSH agent and key files only, and the
// host key must already be known.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	user, host, port, err := parseTarget(cfg.Target)
	if err != nil {
		return nil, err
	}

	hostCB, err := hostKeyCallback(cfg.KnownHostsFile, host, port)
	if err != nil {
		return nil, err
	}
	auth, err := authMethods(cfg.IdentityFiles)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sshConfig := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostCB,
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	sshClient, err := connect(dialCtx, addr, sshConfig)
	if err != nil {
		return nil, fmt.Errorf("remote: SSH connection to %s failed: %w", addr, err)
	}

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("remote: cannot start SFTP subsystem: %w", err)
	}
	return &Session{Client: client, ssh: sshClient}, nil
}

func connect(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := dialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// closing the conn is the only way to interrupt the handshake
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	close(done)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}
