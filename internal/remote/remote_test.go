package remote

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		user    string
		host    string
		port    int
		wantErr bool
	}{
		{name: "valid", target: "alice@example.com", user: "alice", host: "example.com", port: 22},
		{name: "port", target: "alice@example.com:2222", user: "alice", host: "example.com", port: 2222},
		{name: "ipv6", target: "bob@[::1]:2200", user: "bob", host: "::1", port: 2200},
		{name: "empty", target: "", wantErr: true},
		{name: "no at", target: "example.com", wantErr: true},
		{name: "missing user", target: "@example.com", wantErr: true},
		{name: "missing host", target: "alice@", wantErr: true},
		{name: "bad port", target: "alice@example.com:99999", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user, host, port, err := parseTarget(tc.target)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.user, user)
			assert.Equal(t, tc.host, host)
			assert.Equal(t, tc.port, port)
		})
	}
}

func TestKnownHostAddress(t *testing.T) {
	assert.Equal(t, "example.com", knownHostAddress("example.com", 22))
	assert.Equal(t, "[example.com]:2222", knownHostAddress("example.com", 2222))
}

func newKey(t *testing.T) (ssh.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return sshPub, priv
}

func TestHostKeyCallback(t *testing.T) {
	known, _ := newKey(t)
	other, _ := newKey(t)

	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{"example.com", "127.0.0.1"}, known)
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o600))

	addr := &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 22}

	cb, err := hostKeyCallback(path, "example.com", 22)
	require.NoError(t, err)
	assert.NoError(t, cb("example.com:22", addr, known))

	err = cb("example.com:22", addr, other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host key mismatch for example.com")

	unknown, err := hostKeyCallback(path, "new.example.com", 2222)
	require.NoError(t, err)
	err = unknown("new.example.com:2222", &net.TCPAddr{IP: net.ParseIP("10.0.0.9"), Port: 2222}, known)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown host key for [new.example.com]:2222")
}

func TestHostKeyCallbackMissingFile(t *testing.T) {
	_, err := hostKeyCallback(filepath.Join(t.TempDir(), "absent"), "example.com", 22)
	require.Error(t, err)
}

func TestAuthMethods(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	_, priv := newKey(t)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))

	methods, err := authMethods([]string{keyPath, filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	assert.Len(t, methods, 1)

	_, err = authMethods([]string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}

func TestDialRejectsBadTarget(t *testing.T) {
	_, err := Dial(context.Background(), Config{Target: "nobody"})
	require.Error(t, err)
}
