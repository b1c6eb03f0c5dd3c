package transport

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/ppiankov/fleetwatch/internal/inventory"
)

// DefaultHandshakeTimeout bounds the SSH handshake when the caller's
// context carries no deadline.
const DefaultHandshakeTimeout = 15 * time.Second

// SSHDialer connects over SSH with credentials from the inventory.
type SSHDialer struct {
	HandshakeTimeout time.Duration
}

// NewSSHDialer returns a dialer with the default handshake timeout.
func NewSSHDialer() *SSHDialer {
	return &SSHDialer{HandshakeTimeout: DefaultHandshakeTimeout}
}

// Dial opens an SSH connection to the device. The TCP dial honors ctx; the
// handshake is bounded by the ctx deadline when one is set.
func (d *SSHDialer) Dial(ctx context.Context, dev inventory.Device) (Session, error) {
	cfg, err := clientConfig(dev, d.timeout())
	if err != nil {
		return nil, err
	}

	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", dev.Addr())
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
	}
	cc, chans, reqs, err := ssh.NewClientConn(conn, dev.Addr(), cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", dev.Name, err)
	}
	conn.SetDeadline(time.Time{})

	return &sshSession{client: ssh.NewClient(cc, chans, reqs)}, nil
}

func (d *SSHDialer) timeout() time.Duration {
	if d.HandshakeTimeout > 0 {
		return d.HandshakeTimeout
	}
	return DefaultHandshakeTimeout
}

// clientConfig builds the ssh client configuration from inventory
// credentials. Host keys are not verified; the inventory carries no host
// key material.
func clientConfig(dev inventory.Device, timeout time.Duration) (*ssh.ClientConfig, error) {
	cfg := &ssh.ClientConfig{
		User:            dev.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	switch dev.Auth.Type {
	case inventory.AuthPassword:
		cfg.Auth = []ssh.AuthMethod{ssh.Password(dev.Auth.Password)}
	case inventory.AuthSSHKey:
		key, err := os.ReadFile(dev.Auth.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key for %s: %w", dev.Name, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key for %s: %w", dev.Name, err)
		}
		cfg.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	default:
		return nil, fmt.Errorf("device %s: unsupported auth type %q", dev.Name, dev.Auth.Type)
	}
	return cfg, nil
}

type sshSession struct {
	client *ssh.Client
}

func (s *sshSession) Run(ctx context.Context, command string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open exec channel: %w", err)
	}
	defer sess.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := sess.CombinedOutput(command)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		sess.Close()
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return string(r.out), fmt.Errorf("run %q: %w", command, r.err)
		}
		return string(r.out), nil
	}
}

// LoadConfig drives the device CLI over a shell channel: configure
// private, the candidate lines, commit and-quit, exit.
func (s *sshSession) LoadConfig(ctx context.Context, lines []string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open shell channel: %w", err)
	}
	defer sess.Close()

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 38400,
		ssh.TTY_OP_OSPEED: 38400,
	}
	if err := sess.RequestPty("vt100", 80, 200, modes); err != nil {
		return "", fmt.Errorf("request pty: %w", err)
	}
	stdin, err := sess.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("stdin pipe: %w", err)
	}
	var out safeBuffer
	sess.Stdout = &out
	sess.Stderr = &out

	if err := sess.Shell(); err != nil {
		return "", fmt.Errorf("start shell: %w", err)
	}

	script := append([]string{"configure private"}, lines...)
	script = append(script, "commit and-quit", "exit")
	for _, line := range script {
		if _, err := fmt.Fprintln(stdin, line); err != nil {
			return out.String(), fmt.Errorf("send %q: %w", line, err)
		}
	}
	stdin.Close()

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	select {
	case <-ctx.Done():
		sess.Close()
		return out.String(), ctx.Err()
	case err := <-done:
		if err != nil {
			// A non-zero exit still carries the device's output.
			return out.String(), fmt.Errorf("config session: %w", err)
		}
		return out.String(), nil
	}
}

func (s *sshSession) Close() error {
	return s.client.Close()
}

// safeBuffer serializes writes from the session's stdout and stderr.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
