package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/clusterscope/pkg/log"
	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHConfig configures the SSH executor
type SSHConfig struct {
	// ConnectTimeout bounds TCP connect and handshake
	ConnectTimeout time.Duration

	// KnownHostsFile enables host key verification. When empty host keys are
	// not verified.
	KnownHostsFile string
}

// SSHExecutor runs each command in a fresh SSH session against the cluster
// management host, authenticating with the cluster's SSH credentials.
type SSHExecutor struct {
	config  SSHConfig
	hostKey ssh.HostKeyCallback
	logger  zerolog.Logger
}

// NewSSHExecutor creates an SSH executor
func NewSSHExecutor(config SSHConfig) (*SSHExecutor, error) {
	logger := log.WithComponent("remote")

	hostKey := ssh.InsecureIgnoreHostKey()
	if config.KnownHostsFile != "" {
		cb, err := knownhosts.New(config.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		hostKey = cb
	} else {
		logger.Warn().Msg("ssh host key verification disabled, set ssh.known_hosts to enable it")
	}

	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 15 * time.Second
	}

	return &SSHExecutor{
		config:  config,
		hostKey: hostKey,
		logger:  logger,
	}, nil
}

// Execute runs command over SSH and captures stdout and stderr. A non-zero
// exit status is not an error.
func (e *SSHExecutor) Execute(ctx context.Context, cluster *types.Cluster, command string) (Result, error) {
	clientConfig, err := e.clientConfig(cluster)
	if err != nil {
		return Result{}, err
	}

	client, err := e.dial(ctx, cluster, clientConfig)
	if err != nil {
		return Result{}, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("%w: failed to open session: %v", ErrTransport, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = client.Close()

		// Run returns only after the output copies have stopped, so the
		// buffers are safe to read once it is done
		select {
		case <-done:
			return Result{Stdout: stdout.String(), Stderr: stderr.String()}, ctx.Err()
		case <-time.After(e.config.ConnectTimeout):
			return Result{}, ctx.Err()
		}
	case err = <-done:
	}

	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return result, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return result, nil
}

func (e *SSHExecutor) dial(ctx context.Context, cluster *types.Cluster, config *ssh.ClientConfig) (*ssh.Client, error) {
	port := cluster.SSH.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(cluster.Host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: e.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to %s: %v", ErrTransport, addr, err)
	}

	_ = conn.SetDeadline(time.Now().Add(e.config.ConnectTimeout))
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		if isAuthFailure(err) {
			return nil, fmt.Errorf("%w: %s@%s: %v", ErrAuthentication, config.User, addr, err)
		}
		return nil, fmt.Errorf("%w: handshake with %s: %v", ErrTransport, addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

func (e *SSHExecutor) clientConfig(cluster *types.Cluster) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	if cluster.SSH.KeyPath != "" {
		key, err := os.ReadFile(cluster.SSH.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read key %s: %v", ErrAuthentication, cluster.SSH.KeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse key %s: %v", ErrAuthentication, cluster.SSH.KeyPath, err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if cluster.SSH.Password != "" {
		auth = append(auth, ssh.Password(cluster.SSH.Password))
	}
	if len(auth) == 0 {
		return nil, fmt.Errorf("%w: no ssh credentials configured for cluster %s", ErrAuthentication, cluster.Name)
	}

	return &ssh.ClientConfig{
		User:            cluster.SSH.Username,
		Auth:            auth,
		HostKeyCallback: e.hostKey,
		Timeout:         e.config.ConnectTimeout,
	}, nil
}

func isAuthFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}
