package remote

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

var defaultPrivateKeyFiles = []string{
	"id_ed25519",
	"id_ecdsa",
	"id_rsa",
}

// parseTarget splits user@host[:port].
func parseTarget(target string) (user, host string, port int, err error) {
	if strings.TrimSpace(target) == "" {
		return "", "", 0, fmt.Errorf("remote target is required")
	}

	user, hostPort, ok := strings.Cut(target, "@")
	if !ok || user == "" || hostPort == "" {
		return "", "", 0, fmt.Errorf("invalid remote target %q: expected user@host[:port]", target)
	}

	port = 22
	host = hostPort
	if h, p, splitErr := net.SplitHostPort(hostPort); splitErr == nil {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 1 || n > 65535 {
			return "", "", 0, fmt.Errorf("invalid remote target %q: bad port %q", target, p)
		}
		host, port = h, n
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("invalid remote target %q: empty host", target)
	}
	return user, host, port, nil
}

func knownHostAddress(host string, port int) string {
	if port == 22 {
		return host
	}
	return fmt.Sprintf("[%s]:%d", host, port)
}

// hostKeyCallback verifies host keys against a known_hosts file. There is no
// trust-on-first-use: unknown hosts must be added with ssh first.
func hostKeyCallback(path, host string, port int) (ssh.HostKeyCallback, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory for known_hosts: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	verify, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load known_hosts: %w", err)
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}
		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return fmt.Errorf("host key verification failed: %w", err)
		}

		address := knownHostAddress(host, port)
		presented := ssh.FingerprintSHA256(key)
		if len(keyErr.Want) == 0 {
			return fmt.Errorf("unknown host key for %s (%s); run ssh once to trust it", address, presented)
		}

		expected := make([]string, 0, len(keyErr.Want))
		for _, want := range keyErr.Want {
			expected = append(expected, ssh.FingerprintSHA256(want.Key))
		}
		return fmt.Errorf("host key mismatch for %s: expected %s, presented %s",
			address, strings.Join(expected, ", "), presented)
	}, nil
}

// authMethods returns the agent (when SSH_AUTH_SOCK is set) and any readable
// unencrypted private keys.
func authMethods(identityFiles []string) ([]ssh.AuthMethod, error) {
	methods := make([]ssh.AuthMethod, 0, 2)

	if m := agentAuthMethod(); m != nil {
		methods = append(methods, m)
	}
	if signers := loadSigners(identityFiles); len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH auth methods available (configure ssh-agent or private keys)")
	}
	return methods, nil
}

func agentAuthMethod() ssh.AuthMethod {
	sock := strings.TrimSpace(os.Getenv("SSH_AUTH_SOCK"))
	if sock == "" {
		return nil
	}

	return ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return nil, err
		}
		defer conn.Close()
		return agent.NewClient(conn).Signers()
	})
}

// loadSigners parses the given key files, or the default ones under ~/.ssh
// when none are given. Unreadable and passphrase-protected keys are skipped.
func loadSigners(files []string) []ssh.Signer {
	if len(files) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		for _, name := range defaultPrivateKeyFiles {
			files = append(files, filepath.Join(home, ".ssh", name))
		}
	}

	signers := make([]ssh.Signer, 0, len(files))
	for _, path := range files {
		pem, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			continue
		}
		signers = append(signers, signer)
	}
	return signers
}
