package ruida

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sayhiben/laserdove/logger"
)

// DatagramConn abstracts the datagram socket so the frame sender can be
// exercised against in-memory doubles.
type DatagramConn interface {
	// Send transmits one datagram.
	Send(p []byte) error
	// Recv reads one datagram into buf, waiting at most timeout.
	// A timeout surfaces as an error satisfying os.ErrDeadlineExceeded or
	// net.Error with Timeout() == true.
	Recv(buf []byte, timeout time.Duration) (int, error)
	// Close releases the socket.
	Close() error
}

// udpConn is the production DatagramConn over a connected UDP socket.
type udpConn struct {
	conn *net.UDPConn
}

// dialUDP binds the configured source port and connects to the controller.
// A busy source port falls back to an ephemeral one; some controllers only
// care about the destination port, and refusing to start over a bind
// conflict would strand the operator.
func dialUDP(cfg *SessionConfig) (DatagramConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("ruida: resolve controller address: %w", err)
	}

	laddr := &net.UDPAddr{Port: cfg.SourcePort()}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil && cfg.SourcePort() != 0 {
		cfg.GetLogger().Warn("source port bind failed, falling back to ephemeral port",
			"source_port", cfg.SourcePort(), "error", err)
		conn, err = net.DialUDP("udp", nil, raddr)
	}
	if err != nil {
		return nil, fmt.Errorf("ruida: dial controller: %w", err)
	}

	return &udpConn{conn: conn}, nil
}

func (c *udpConn) Send(p []byte) error {
	_, err := c.conn.Write(p)

	return err
}

func (c *udpConn) Recv(buf []byte, timeout time.Duration) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, err
	}

	return c.conn.Read(buf)
}

func (c *udpConn) Close() error {
	return c.conn.Close()
}

// isTimeout reports whether err is a read-deadline expiry.
func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var nerr net.Error

	return errors.As(err, &nerr) && nerr.Timeout()
}

// frameSender implements the reliable half of the transport: send one frame,
// block for a single-byte acknowledgment, retransmit on timeout up to the
// configured bound.
//
// This type is NOT goroutine-safe. The session guarantees only one operation
// is active at a time; the controller's behavior under overlapping datagrams
// is undocumented and unsafe to assume.
type frameSender struct {
	conn    DatagramConn
	cfg     *SessionConfig
	logger  logger.Logger
	metrics *SessionMetrics
}

func newFrameSender(conn DatagramConn, cfg *SessionConfig, l logger.Logger, metrics *SessionMetrics) *frameSender {
	return &frameSender{
		conn:    conn,
		cfg:     cfg,
		logger:  l,
		metrics: metrics,
	}
}

// sendResult classifies the outcome of a single transmission attempt so the
// retry loop can decide whether to retry or abort.
type sendResult int

const (
	sendOK     sendResult = iota // frame acknowledged
	sendRetry                    // retryable failure (ack timeout, garbage reply)
	sendReject                   // controller sent NACK; retrying is pointless
	sendAbort                    // non-retryable failure (write error, context cancelled)
)

// sendFrame transmits one frame and waits for its acknowledgment, allowing
// up to cfg.MaxRetries() retransmissions after the initial send. Frames are
// acknowledged strictly in order; the caller must not invoke sendFrame for
// the next frame until the previous returned nil.
//
// Returns nil on ACK, ErrRejected immediately on NACK (the controller has
// actively refused), ErrUnresponsive when the retry budget is exhausted, or
// the context error when cancelled.
func (fs *frameSender) sendFrame(ctx context.Context, frame Frame) error {
	wire := frame.Pack(fs.cfg.Magic())

	var lastErr error
	for retry := 0; retry <= fs.cfg.MaxRetries(); retry++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if retry > 0 {
			fs.metrics.incFrameRetryCount()
			fs.logger.Debug("frame retransmission",
				"retry", retry,
				"max_retries", fs.cfg.MaxRetries(),
				"error", lastErr,
			)
		}

		result, err := fs.transmitOnce(wire)
		switch result {
		case sendOK:
			return nil
		case sendReject:
			fs.metrics.incFrameNackCount()

			return err
		case sendAbort:
			return err
		case sendRetry:
			lastErr = err
		}
	}

	return fmt.Errorf("%w: %d retransmissions without acknowledgment", ErrUnresponsive, fs.cfg.MaxRetries())
}

// transmitOnce performs one send-and-wait-for-ack attempt.
func (fs *frameSender) transmitOnce(wire []byte) (sendResult, error) {
	if err := fs.conn.Send(wire); err != nil {
		return sendAbort, fmt.Errorf("ruida: send frame: %w", err)
	}
	fs.metrics.incFrameSendCount()

	var reply [8]byte
	n, err := fs.conn.Recv(reply[:], fs.cfg.AckTimeout())
	if err != nil {
		if isTimeout(err) {
			return sendRetry, fmt.Errorf("%w: no acknowledgment within %v", ErrReplyTimeout, fs.cfg.AckTimeout())
		}

		return sendAbort, fmt.Errorf("ruida: receive acknowledgment: %w", err)
	}
	if n == 0 {
		return sendRetry, ErrEmptyReply
	}

	b := reply[0]
	switch {
	case IsAck(b):
		return sendOK, nil
	case IsNack(b):
		return sendReject, fmt.Errorf("%w: NACK byte 0x%02X", ErrRejected, b)
	default:
		// Undocumented reply byte. Retrying within the same bounded budget is
		// the safe interpretation; the controller may still be settling.
		return sendRetry, fmt.Errorf("%w: 0x%02X", ErrUnexpectedReply, b)
	}
}

// query sends a framed request payload and collects the follow-on reply
// datagram after the acknowledgment. Used for controller memory reads.
//
// The reply is a frame like any other; a checksum failure is reported as
// ErrMalformedReply (recoverable) so the poller retries the poll instead of
// faulting on a single corrupt datagram.
func (fs *frameSender) query(ctx context.Context, payload []byte) ([]byte, error) {
	if err := fs.sendFrame(ctx, NewFrame(payload)); err != nil {
		return nil, err
	}

	buf := make([]byte, fs.cfg.MaxPayload()+checksumSize)
	n, err := fs.conn.Recv(buf, fs.cfg.AckTimeout())
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: no reply datagram within %v", ErrReplyTimeout, fs.cfg.AckTimeout())
		}

		return nil, fmt.Errorf("ruida: receive reply: %w", err)
	}

	frame, err := ParseFrame(buf[:n], fs.cfg.Magic())
	if err != nil {
		fs.metrics.incChecksumErrCount()

		return nil, fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}

	return frame.Payload, nil
}
