// Copyright 2026 The Guardian Agent Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package intercept

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/AurioPinto/guardian-agent/lib/frame"
	"github.com/AurioPinto/guardian-agent/lib/guard"
	"github.com/AurioPinto/guardian-agent/lib/opdigest"
)

// testDaemons is a pair of single-connection stub endpoints standing
// in for the elevation daemon and the trusted agent. Each handler
// serves accepted connections until the listener closes; handler
// errors surface on the connection, which the client under test
// observes as a protocol failure.
type testDaemons struct {
	guardoSocket string
	agentSocket  string
	publicKey    ed25519.PublicKey
	privateKey   ed25519.PrivateKey
}

type connHandler func(t *testing.T, d *testDaemons, conn *frame.Conn)

func startDaemons(t *testing.T, guardo, agent connHandler) *testDaemons {
	t.Helper()
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	d := &testDaemons{
		guardoSocket: filepath.Join(t.TempDir(), "guardo.sock"),
		agentSocket:  filepath.Join(t.TempDir(), "agent.sock"),
		publicKey:    publicKey,
		privateKey:   privateKey,
	}
	d.listen(t, d.guardoSocket, guardo)
	d.listen(t, d.agentSocket, agent)
	return d
}

func (d *testDaemons) listen(t *testing.T, path string, handler connHandler) {
	t.Helper()
	if handler == nil {
		return
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Listen(%s): %v", path, err)
	}
	t.Cleanup(func() { listener.Close() })
	go func() {
		for {
			accepted, err := listener.Accept()
			if err != nil {
				return
			}
			conn := frame.NewConn(accepted.(*net.UnixConn))
			handler(t, d, conn)
			conn.Close()
		}
	}()
}

// issueChallenge serves the challenge phase and returns the nonce it
// issued.
func issueChallenge(t *testing.T, conn *frame.Conn) []byte {
	t.Helper()
	var request guard.ChallengeRequest
	if err := conn.Receive(guard.TagChallengeRequest, &request); err != nil {
		t.Errorf("challenge request: %v", err)
		return nil
	}
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		t.Errorf("rand.Read: %v", err)
		return nil
	}
	if err := conn.Send(guard.TagChallengeResponse, guard.Challenge{Nonce: nonce, IssuedAt: 1700000000}); err != nil {
		t.Errorf("challenge response: %v", err)
		return nil
	}
	return nonce
}

// approvingAgent signs any credential request whose digest matches a
// local recomputation.
func approvingAgent(t *testing.T, d *testDaemons, conn *frame.Conn) {
	var request guard.CredentialRequest
	if err := conn.Receive(guard.TagCredentialRequest, &request); err != nil {
		t.Errorf("credential request: %v", err)
		return
	}
	digest, err := opdigest.Operation(request.Op, request.Challenge.Nonce)
	if err != nil {
		t.Errorf("recomputing digest: %v", err)
		return
	}
	if !opdigest.Equal(digest, request.Digest) {
		t.Error("credential request digest does not match recomputation")
		return
	}
	credential, err := guard.SignCredential(d.privateKey, guard.NewClaims(digest, request.Challenge))
	if err != nil {
		t.Errorf("SignCredential: %v", err)
		return
	}
	response := guard.CredentialResponse{Status: guard.StatusApproved, Credential: credential}
	if err := conn.Send(guard.TagCredentialResponse, response); err != nil {
		t.Errorf("credential response: %v", err)
	}
}

func denyingAgent(t *testing.T, _ *testDaemons, conn *frame.Conn) {
	var request guard.CredentialRequest
	if err := conn.Receive(guard.TagCredentialRequest, &request); err != nil {
		t.Errorf("credential request: %v", err)
		return
	}
	response := guard.CredentialResponse{Status: guard.StatusDenied}
	if err := conn.Send(guard.TagCredentialResponse, response); err != nil {
		t.Errorf("credential response: %v", err)
	}
}

// verifyElevation serves the elevation phase far enough to check the
// credential against the issued nonce, then responds with respond.
func verifyElevation(t *testing.T, d *testDaemons, conn *frame.Conn, nonce []byte, respond func(*guard.ElevationRequest, []int) error) {
	t.Helper()
	var request guard.ElevationRequest
	fds, err := conn.ReceiveFDs(guard.TagElevationRequest, &request)
	if err != nil {
		t.Errorf("elevation request: %v", err)
		return
	}
	defer func() {
		for _, fd := range fds {
			unix.Close(fd)
		}
	}()
	claims, err := guard.VerifyCredential(d.publicKey, request.Credential)
	if err != nil {
		t.Errorf("VerifyCredential: %v", err)
		return
	}
	digest, err := opdigest.Operation(request.Op, nonce)
	if err != nil {
		t.Errorf("recomputing digest: %v", err)
		return
	}
	if !opdigest.Equal(digest, claims.Digest) {
		t.Error("credential digest does not match the challenged operation")
		return
	}
	if err := respond(&request, fds); err != nil {
		t.Errorf("elevation response: %v", err)
	}
}

func testNegotiator(d *testDaemons) *Negotiator {
	return &Negotiator{
		GuardoSocket: d.guardoSocket,
		AgentSocket:  d.agentSocket,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

func TestElevateNumericResult(t *testing.T) {
	t.Parallel()
	d := startDaemons(t,
		func(t *testing.T, d *testDaemons, conn *frame.Conn) {
			nonce := issueChallenge(t, conn)
			verifyElevation(t, d, conn, nonce, func(*guard.ElevationRequest, []int) error {
				return conn.Send(guard.TagElevationResponse, guard.ElevationResponse{Result: 0})
			})
		},
		approvingAgent,
	)

	op := guard.NewUnlinkOp(263, guard.AtFDCWD, "/var/lock/stale", 0)
	op.Args[0].DirFd = &guard.DirFd{Form: guard.DirFdPath, Path: "/"}

	result, err := testNegotiator(d).Elevate(op, nil)
	if err != nil {
		t.Fatalf("Elevate: %v", err)
	}
	if result.FD != nil {
		t.Error("result FD: got descriptor, want nil")
	}
	if result.Value != 0 {
		t.Errorf("result value: got %d, want 0", result.Value)
	}
}

func TestElevateDescriptorResult(t *testing.T) {
	t.Parallel()
	contents := []byte("elevated read\n")
	target := filepath.Join(t.TempDir(), "target")
	if err := os.WriteFile(target, contents, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d := startDaemons(t,
		func(t *testing.T, d *testDaemons, conn *frame.Conn) {
			nonce := issueChallenge(t, conn)
			verifyElevation(t, d, conn, nonce, func(*guard.ElevationRequest, []int) error {
				opened, err := unix.Open(target, unix.O_RDONLY, 0)
				if err != nil {
					return err
				}
				defer unix.Close(opened)
				response := guard.ElevationResponse{IsResultFD: true}
				return conn.SendFDs(guard.TagElevationResponse, response, []int{opened})
			})
		},
		approvingAgent,
	)

	op := guard.NewOpenOp(257, guard.AtFDCWD, target, int64(unix.O_RDONLY), 0)
	op.Args[0].DirFd = &guard.DirFd{Form: guard.DirFdPath, Path: "/"}

	result, err := testNegotiator(d).Elevate(op, nil)
	if err != nil {
		t.Fatalf("Elevate: %v", err)
	}
	if result.FD == nil {
		t.Fatal("result FD: got nil, want a transplanted descriptor")
	}
	defer result.FD.Close()

	file := os.NewFile(uintptr(result.FD.Release()), "transplanted")
	defer file.Close()
	got := make([]byte, len(contents))
	if _, err := file.Read(got); err != nil {
		t.Fatalf("reading transplanted descriptor: %v", err)
	}
	if string(got) != string(contents) {
		t.Errorf("transplanted contents: got %q, want %q", got, contents)
	}
}

func TestElevateTransplantsRequestDescriptors(t *testing.T) {
	t.Parallel()
	pipe := make([]int, 2)
	if err := unix.Pipe(pipe); err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	defer unix.Close(pipe[0])
	defer unix.Close(pipe[1])

	received := make(chan int, 1)
	d := startDaemons(t,
		func(t *testing.T, d *testDaemons, conn *frame.Conn) {
			nonce := issueChallenge(t, conn)
			verifyElevation(t, d, conn, nonce, func(_ *guard.ElevationRequest, fds []int) error {
				received <- len(fds)
				return conn.Send(guard.TagElevationResponse, guard.ElevationResponse{Result: 0})
			})
		},
		approvingAgent,
	)

	op := guard.NewBindOp(49, 0, []byte{0x01, 0x00})
	if _, err := testNegotiator(d).Elevate(op, []int{pipe[0]}); err != nil {
		t.Fatalf("Elevate: %v", err)
	}
	if got := <-received; got != 1 {
		t.Errorf("daemon received %d descriptors, want 1", got)
	}
}

func TestElevateDenied(t *testing.T) {
	t.Parallel()
	elevationReached := make(chan struct{}, 1)
	d := startDaemons(t,
		func(t *testing.T, d *testDaemons, conn *frame.Conn) {
			issueChallenge(t, conn)
			// A denied negotiation must end here: any further frame on
			// this connection is a client bug.
			var request guard.ElevationRequest
			if _, err := conn.ReceiveFDs(guard.TagElevationRequest, &request); err == nil {
				elevationReached <- struct{}{}
			}
		},
		denyingAgent,
	)

	op := guard.NewSocketOp(41, unix.AF_INET, unix.SOCK_STREAM, 0)
	_, err := testNegotiator(d).Elevate(op, nil)

	var denied *DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("Elevate: got %v, want DeniedError", err)
	}
	if denied.Status != guard.StatusDenied {
		t.Errorf("status: got %v, want denied", denied.Status)
	}
	select {
	case <-elevationReached:
		t.Error("elevation request was sent despite the denial")
	default:
	}
}

func TestElevateApprovalWithoutCredential(t *testing.T) {
	t.Parallel()
	d := startDaemons(t,
		func(t *testing.T, d *testDaemons, conn *frame.Conn) {
			issueChallenge(t, conn)
		},
		func(t *testing.T, _ *testDaemons, conn *frame.Conn) {
			var request guard.CredentialRequest
			if err := conn.Receive(guard.TagCredentialRequest, &request); err != nil {
				t.Errorf("credential request: %v", err)
				return
			}
			response := guard.CredentialResponse{Status: guard.StatusApproved}
			if err := conn.Send(guard.TagCredentialResponse, response); err != nil {
				t.Errorf("credential response: %v", err)
			}
		},
	)

	op := guard.NewSocketOp(41, unix.AF_INET, unix.SOCK_STREAM, 0)
	if _, err := testNegotiator(d).Elevate(op, nil); !errors.Is(err, frame.ErrProtocol) {
		t.Errorf("Elevate: got %v, want ErrProtocol", err)
	}
}

func TestElevateWrongChallengeTag(t *testing.T) {
	t.Parallel()
	d := startDaemons(t,
		func(t *testing.T, d *testDaemons, conn *frame.Conn) {
			var request guard.ChallengeRequest
			if err := conn.Receive(guard.TagChallengeRequest, &request); err != nil {
				t.Errorf("challenge request: %v", err)
				return
			}
			// Respond with the wrong frame tag.
			conn.Send(guard.TagElevationResponse, guard.ElevationResponse{})
		},
		nil,
	)

	op := guard.NewSocketOp(41, unix.AF_INET, unix.SOCK_STREAM, 0)
	if _, err := testNegotiator(d).Elevate(op, nil); !errors.Is(err, frame.ErrProtocol) {
		t.Errorf("Elevate: got %v, want ErrProtocol", err)
	}
}

func TestElevateDescriptorResponseWithoutDescriptor(t *testing.T) {
	t.Parallel()
	d := startDaemons(t,
		func(t *testing.T, d *testDaemons, conn *frame.Conn) {
			nonce := issueChallenge(t, conn)
			verifyElevation(t, d, conn, nonce, func(*guard.ElevationRequest, []int) error {
				// Claim a descriptor result without transplanting one.
				return conn.Send(guard.TagElevationResponse, guard.ElevationResponse{IsResultFD: true})
			})
		},
		approvingAgent,
	)

	op := guard.NewSocketOp(41, unix.AF_INET, unix.SOCK_STREAM, 0)
	if _, err := testNegotiator(d).Elevate(op, nil); !errors.Is(err, errNoResultDescriptor) {
		t.Errorf("Elevate: got %v, want errNoResultDescriptor", err)
	}
}

func TestElevateDaemonUnreachable(t *testing.T) {
	t.Parallel()
	negotiator := &Negotiator{
		GuardoSocket: filepath.Join(t.TempDir(), "absent.sock"),
		AgentSocket:  filepath.Join(t.TempDir(), "absent.sock"),
	}
	op := guard.NewSocketOp(41, unix.AF_INET, unix.SOCK_STREAM, 0)
	if _, err := negotiator.Elevate(op, nil); err == nil {
		t.Error("Elevate: expected error for unreachable daemon")
	}
}

func TestElevateAgentDisconnects(t *testing.T) {
	t.Parallel()
	d := startDaemons(t,
		func(t *testing.T, d *testDaemons, conn *frame.Conn) {
			issueChallenge(t, conn)
		},
		func(t *testing.T, _ *testDaemons, conn *frame.Conn) {
			var request guard.CredentialRequest
			conn.Receive(guard.TagCredentialRequest, &request)
			// Hang up without answering.
		},
	)

	op := guard.NewSocketOp(41, unix.AF_INET, unix.SOCK_STREAM, 0)
	if _, err := testNegotiator(d).Elevate(op, nil); err == nil {
		t.Error("Elevate: expected error when the agent disconnects mid-negotiation")
	}
}
