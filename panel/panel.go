// Package panel drives the Ruida controller's panel UDP port, the channel
// the physical front-panel buttons speak. Unlike the job port it carries no
// swizzle and no checksum: raw command bytes out, a single 0xCC back.
//
// Panel commands are best-effort by nature. The port mirrors button
// presses, and a lost press is recovered by pressing again; anomalies are
// logged rather than retried.
package panel

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sayhiben/laserdove/logger"
)

// Default panel port endpoints. The controller listens on 50207 and only
// answers datagrams sourced from 40207.
const (
	DefaultPort       = 50207
	DefaultSourcePort = 40207
	DefaultAckTimeout = 1 * time.Second
)

// AckByte is the panel port's positive acknowledgment.
const AckByte byte = 0xCC

// Panel button command bytes.
var (
	cmdStop      = []byte{0xA5, 0x50, 0x09}
	cmdOrigin    = []byte{0xA5, 0x50, 0x08}
	cmdFrame     = []byte{0xA5, 0x53, 0x00}
	cmdYMinus    = []byte{0xA5, 0x50, 0x03}
	cmdYPlus     = []byte{0xA5, 0x51, 0x03}
	cmdZMinus    = []byte{0xA5, 0x50, 0x0A}
	cmdZPlus     = []byte{0xA5, 0x51, 0x0A}
	cmdHandshake = []byte{AckByte}
)

// ErrNoAck reports that the controller did not acknowledge a panel command
// within the timeout.
var ErrNoAck = errors.New("panel: no acknowledgment from controller")

// Conn is a session on the panel port.
type Conn struct {
	cfg    *Config
	logger logger.Logger
	conn   *net.UDPConn
}

// Config holds the panel connection settings.
type Config struct {
	host       string
	port       int
	sourcePort int
	ackTimeout time.Duration
	dryRun     bool
	logger     logger.Logger
}

// Option mutates a Config.
type Option func(*Config)

// WithPort overrides the controller's panel port.
func WithPort(port int) Option { return func(c *Config) { c.port = port } }

// WithSourcePort overrides the local source port.
func WithSourcePort(port int) Option { return func(c *Config) { c.sourcePort = port } }

// WithAckTimeout overrides how long to wait for the 0xCC acknowledgment.
func WithAckTimeout(d time.Duration) Option { return func(c *Config) { c.ackTimeout = d } }

// WithDryRun logs commands instead of sending them.
func WithDryRun(enabled bool) Option { return func(c *Config) { c.dryRun = enabled } }

// WithLogger overrides the logger.
func WithLogger(l logger.Logger) Option { return func(c *Config) { c.logger = l } }

// Dial opens a panel connection to host and performs the handshake.
func Dial(host string, opts ...Option) (*Conn, error) {
	cfg := &Config{
		host:       host,
		port:       DefaultPort,
		sourcePort: DefaultSourcePort,
		ackTimeout: DefaultAckTimeout,
		logger:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Conn{cfg: cfg, logger: cfg.logger.With("panel", fmt.Sprintf("%s:%d", cfg.host, cfg.port))}

	if cfg.dryRun {
		p.logger.Info("dry-run: panel connection not opened")

		return p, nil
	}

	raddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.host, cfg.port))
	if err != nil {
		return nil, fmt.Errorf("panel: resolve %s: %w", cfg.host, err)
	}
	laddr := &net.UDPAddr{Port: cfg.sourcePort}

	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		// The fixed source port may be held by another process; the
		// controller usually still answers an ephemeral one.
		conn, err = net.DialUDP("udp", nil, raddr)
		if err != nil {
			return nil, fmt.Errorf("panel: dial %s: %w", raddr, err)
		}
		p.logger.Warn("source port unavailable, using ephemeral port", "want", cfg.sourcePort)
	}
	p.conn = conn

	if err := p.handshake(); err != nil {
		p.logger.Warn("panel handshake not acknowledged", "error", err)
	}

	return p, nil
}

// Close releases the socket.
func (p *Conn) Close() error {
	if p.conn == nil {
		return nil
	}

	return p.conn.Close()
}

// Stop presses the panel stop button.
func (p *Conn) Stop() error { return p.press("stop", cmdStop) }

// SetOrigin presses the origin button, anchoring the job start point at the
// current head position.
func (p *Conn) SetOrigin() error { return p.press("origin", cmdOrigin) }

// Frame presses the frame button, tracing the loaded job's bounding box
// with the laser off.
func (p *Conn) Frame() error { return p.press("frame", cmdFrame) }

// JogY presses the Y jog button in the given direction.
func (p *Conn) JogY(positive bool) error {
	if positive {
		return p.press("y+", cmdYPlus)
	}

	return p.press("y-", cmdYMinus)
}

// JogZ presses the Z jog button in the given direction.
func (p *Conn) JogZ(positive bool) error {
	if positive {
		return p.press("z+", cmdZPlus)
	}

	return p.press("z-", cmdZMinus)
}

// handshake announces our presence by sending the ACK byte, as the vendor
// panel software does on connect.
func (p *Conn) handshake() error {
	return p.press("handshake", cmdHandshake)
}

// press sends one command and waits for the single-byte acknowledgment.
func (p *Conn) press(name string, cmd []byte) error {
	if p.cfg.dryRun || p.conn == nil {
		p.logger.Info("dry-run panel command", "command", name, "bytes", fmt.Sprintf("% X", cmd))

		return nil
	}

	if _, err := p.conn.Write(cmd); err != nil {
		return fmt.Errorf("panel: send %s: %w", name, err)
	}

	if err := p.conn.SetReadDeadline(time.Now().Add(p.cfg.ackTimeout)); err != nil {
		return fmt.Errorf("panel: set deadline: %w", err)
	}

	buf := make([]byte, 8)
	n, err := p.conn.Read(buf)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return fmt.Errorf("%w: %s", ErrNoAck, name)
		}

		return fmt.Errorf("panel: read %s reply: %w", name, err)
	}
	if n == 0 || buf[0] != AckByte {
		p.logger.Warn("unexpected panel reply", "command", name, "reply", fmt.Sprintf("% X", buf[:n]))

		return fmt.Errorf("%w: %s", ErrNoAck, name)
	}

	p.logger.Debug("panel command acknowledged", "command", name)

	return nil
}
