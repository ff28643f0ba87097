package remote

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/clusterscope/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// commandHandler serves one exec request on an accepted session channel
type commandHandler func(command string, ch ssh.Channel)

// startSSHServer serves password-authenticated sessions for hadoop/secret on
// a loopback port
func startSSHServer(t *testing.T, handle commandHandler) int {
	t.Helper()

	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(key)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if c.User() == "hadoop" && string(password) == "secret" {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %s", c.User())
		},
	}
	config.AddHostKey(signer)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go serveSSHConn(conn, config, handle)
		}
	}()
	return l.Addr().(*net.TCPAddr).Port
}

func serveSSHConn(conn net.Conn, config *ssh.ServerConfig, handle commandHandler) {
	defer conn.Close()

	sc, chans, reqs, err := ssh.NewServerConn(conn, config)
	if err != nil {
		return
	}
	defer sc.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only sessions are served")
			continue
		}
		ch, requests, err := newCh.Accept()
		if err != nil {
			continue
		}
		go func() {
			for req := range requests {
				if req.Type != "exec" {
					_ = req.Reply(false, nil)
					continue
				}
				var payload struct{ Command string }
				if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
					_ = req.Reply(false, nil)
					continue
				}
				_ = req.Reply(true, nil)
				go func() {
					handle(payload.Command, ch)
					ch.Close()
				}()
			}
		}()
	}
}

func exitWith(ch ssh.Channel, code uint32) {
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{code}))
}

func sshCluster(port int, password string) *types.Cluster {
	cluster := &types.Cluster{Name: "prod-a", Host: "127.0.0.1"}
	cluster.SSH.Username = "hadoop"
	cluster.SSH.Password = password
	cluster.SSH.Port = port
	return cluster
}

func TestSSHExecutorRequiresCredentials(t *testing.T) {
	e, err := NewSSHExecutor(SSHConfig{})
	require.NoError(t, err)

	cluster := &types.Cluster{Name: "prod-a", Host: "127.0.0.1"}
	cluster.SSH.Username = "hadoop"

	_, err = e.Execute(context.Background(), cluster, "hostname")
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Contains(t, err.Error(), "prod-a")
}

func TestSSHExecutorMissingKeyFile(t *testing.T) {
	e, err := NewSSHExecutor(SSHConfig{})
	require.NoError(t, err)

	cluster := &types.Cluster{Name: "prod-a", Host: "127.0.0.1"}
	cluster.SSH.Username = "hadoop"
	cluster.SSH.KeyPath = filepath.Join(t.TempDir(), "id_rsa")

	_, err = e.Execute(context.Background(), cluster, "hostname")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestSSHExecutorConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	e, err := NewSSHExecutor(SSHConfig{ConnectTimeout: time.Second})
	require.NoError(t, err)

	cluster := &types.Cluster{Name: "prod-a", Host: "127.0.0.1"}
	cluster.SSH.Username = "hadoop"
	cluster.SSH.Password = "secret"
	cluster.SSH.Port = port

	_, err = e.Execute(context.Background(), cluster, "hostname")
	assert.ErrorIs(t, err, ErrTransport)
}

func TestNewSSHExecutorBadKnownHosts(t *testing.T) {
	_, err := NewSSHExecutor(SSHConfig{KnownHostsFile: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestSSHExecutorRunsCommand(t *testing.T) {
	port := startSSHServer(t, func(command string, ch ssh.Channel) {
		_, _ = io.WriteString(ch, "ran: "+command+"\n")
		_, _ = io.WriteString(ch.Stderr(), "warning: safe mode\n")
		exitWith(ch, 3)
	})

	e, err := NewSSHExecutor(SSHConfig{ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)

	result, err := e.Execute(context.Background(), sshCluster(port, "secret"), "hdfs dfsadmin -report")
	require.NoError(t, err)
	assert.Equal(t, "ran: hdfs dfsadmin -report\n", result.Stdout)
	assert.Equal(t, "warning: safe mode\n", result.Stderr)
	assert.Equal(t, 3, result.ExitCode)
}

func TestSSHExecutorRejectedPassword(t *testing.T) {
	port := startSSHServer(t, func(command string, ch ssh.Channel) {
		exitWith(ch, 0)
	})

	e, err := NewSSHExecutor(SSHConfig{ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), sshCluster(port, "wrong"), "hostname")
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestSSHExecutorCancelWhileCommandWrites(t *testing.T) {
	writing := make(chan struct{})
	var once sync.Once

	port := startSSHServer(t, func(command string, ch ssh.Channel) {
		line := bytes.Repeat([]byte("x"), 1024)
		for {
			if _, err := ch.Write(line); err != nil {
				return
			}
			once.Do(func() { close(writing) })
			if _, err := ch.Stderr().Write(line); err != nil {
				return
			}
		}
	})

	e, err := NewSSHExecutor(SSHConfig{ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-writing
		cancel()
	}()

	start := time.Now()
	_, err = e.Execute(ctx, sshCluster(port, "secret"), "yes")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}
