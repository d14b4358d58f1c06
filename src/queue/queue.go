// Package queue provides a one-directional FIFO message channel across
// process boundaries, built on Unix domain sockets with JSON framing.
// Each queue has exactly one writer and one reader: the reader owns the
// socket and listens, the writer dials. Stream sockets preserve send
// order, so delivery is FIFO per queue by construction.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

const unixNetwork = "unix"

// ErrPathNotSocket is returned when the queue path exists and is not a socket.
var ErrPathNotSocket = errors.New("queue: path exists and is not a socket")

// Receiver is the reading end of a queue. It listens on the socket path
// and accepts a single writer connection lazily on the first Receive.
type Receiver struct {
	path     string
	ln       *net.UnixListener
	conn     *net.UnixConn
	dec      *json.Decoder
	deadline time.Time
}

func Listen(path string) (*Receiver, error) {
	if path == "" {
		return nil, fmt.Errorf("queue: empty socket path")
	}

	if err := removeStaleSocket(path); err != nil {
		return nil, err
	}

	ln, err := net.ListenUnix(unixNetwork, &net.UnixAddr{Name: path, Net: unixNetwork})
	if err != nil {
		return nil, fmt.Errorf("queue: failed to listen on %s: %w", path, err)
	}

	ln.SetUnlinkOnClose(true)

	return &Receiver{path: path, ln: ln}, nil
}

func (r *Receiver) Path() string {
	return r.path
}

// SetDeadline bounds the pending accept and all subsequent reads. A
// deadline hit surfaces from Receive as a net.Error with Timeout true.
func (r *Receiver) SetDeadline(t time.Time) error {
	r.deadline = t
	if r.conn != nil {
		return r.conn.SetReadDeadline(t)
	}

	return r.ln.SetDeadline(t)
}

// Receive blocks until the next message arrives and decodes it into v.
// It returns io.EOF once the writer closes its end.
func (r *Receiver) Receive(v interface{}) error {
	if r.conn == nil {
		conn, err := r.ln.AcceptUnix()
		if err != nil {
			return fmt.Errorf("queue: accept on %s failed: %w", r.path, err)
		}

		r.conn = conn
		r.dec = json.NewDecoder(conn)

		if !r.deadline.IsZero() {
			if err := conn.SetReadDeadline(r.deadline); err != nil {
				return fmt.Errorf("queue: failed to set read deadline on %s: %w", r.path, err)
			}
		}
	}

	return r.dec.Decode(v)
}

func (r *Receiver) Close() error {
	var connErr error
	if r.conn != nil {
		connErr = r.conn.Close()
		r.conn = nil
	}

	if err := r.ln.Close(); err != nil {
		return err
	}

	return connErr
}

// Sender is the writing end of a queue.
type Sender struct {
	conn *net.UnixConn
	enc  *json.Encoder
}

// Dial connects to the queue at path, retrying with backoff until the
// reader process has started listening.
func Dial(path string, maxWait time.Duration) (*Sender, error) {
	backOff := []time.Duration{50 * time.Millisecond, 100 * time.Millisecond, 250 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}

	deadline := time.Now().Add(maxWait)
	counter := 0
	for {
		conn, err := net.DialUnix(unixNetwork, nil, &net.UnixAddr{Name: path, Net: unixNetwork})
		if err == nil {
			return &Sender{conn: conn, enc: json.NewEncoder(conn)}, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("queue: failed to dial %s: %w", path, err)
		}

		time.Sleep(backOff[counter])
		if counter < len(backOff)-1 {
			counter++
		}
	}
}

// Send blocks until the message is written to the socket.
func (s *Sender) Send(v interface{}) error {
	return s.enc.Encode(v)
}

func (s *Sender) Close() error {
	return s.conn.Close()
}

func removeStaleSocket(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if info.Mode()&os.ModeSocket == 0 {
		return ErrPathNotSocket
	}

	return os.Remove(path)
}
