package ruida

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sayhiben/laserdove/logger"
)

// Defaults for a Ruida UDP session.
const (
	// DefaultPort is the controller's job/action UDP port.
	DefaultPort = 50200
	// DefaultSourcePort is the local UDP source port vendor software binds.
	DefaultSourcePort = 40200

	// DefaultAckTimeout bounds the wait for a single-byte acknowledgment.
	DefaultAckTimeout = 3 * time.Second
	// DefaultMaxRetries is the number of retransmissions allowed per frame
	// after the initial send before the controller is declared unresponsive.
	DefaultMaxRetries = 3
	// DefaultMaxPayload is the largest frame payload sent in one datagram.
	DefaultMaxPayload = 1470

	// DefaultPollInterval is the delay between status polls.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultStablePolls is the number of consecutive unchanged
	// idle-consistent polls required to declare a job complete.
	DefaultStablePolls = 3
	// DefaultMaxWait bounds the whole status-polling phase.
	DefaultMaxWait = 200 * time.Second
	// DefaultPositionTolMM is the position delta treated as "no movement".
	DefaultPositionTolMM = 0.001
)

// Validation limits.
const (
	MinAckTimeout = 100 * time.Millisecond
	MaxAckTimeout = 30 * time.Second

	MaxRetryLimit = 31

	// MinPayload keeps room for at least one coordinate opcode per frame.
	MinPayload = 16
	// MaxPayload stays under the typical UDP MTU the controllers negotiate.
	MaxPayload = 1470
)

// SessionConfig holds all configuration for one controller session.
type SessionConfig struct {
	host       string
	port       int
	sourcePort int

	// magic is the swizzle key, selected by controller family.
	magic byte

	ackTimeout time.Duration
	maxRetries int
	maxPayload int

	pollInterval  time.Duration
	stablePolls   int
	minStableTime time.Duration
	maxWait       time.Duration
	positionTolMM float64

	// Encoding policy.
	movementOnly        bool
	airAssist           bool
	zPositiveMovesBedUp bool

	// dryRun builds and logs frames without sending them.
	dryRun bool
	// saveRDDir, when set, persists each job's swizzled body as a .rd file.
	saveRDDir string

	logger logger.Logger
}

// NewSessionConfig creates a session configuration for the controller at
// host. opts are functional options applied in order; see With* functions.
func NewSessionConfig(host string, opts ...SessionOption) (*SessionConfig, error) {
	cfg := &SessionConfig{
		port:                DefaultPort,
		sourcePort:          DefaultSourcePort,
		magic:               DefaultMagic,
		ackTimeout:          DefaultAckTimeout,
		maxRetries:          DefaultMaxRetries,
		maxPayload:          DefaultMaxPayload,
		pollInterval:        DefaultPollInterval,
		stablePolls:         DefaultStablePolls,
		maxWait:             DefaultMaxWait,
		positionTolMM:       DefaultPositionTolMM,
		airAssist:           true,
		zPositiveMovesBedUp: true,
		logger:              logger.GetLogger(),
	}

	if err := cfg.setHost(host); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *SessionConfig) setHost(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		cfg.host = host
		return nil
	}

	trimmed := strings.TrimSuffix(host, ".")
	if trimmed != "" && validHostname(trimmed) {
		cfg.host = trimmed
		return nil
	}

	return fmt.Errorf("ruida: invalid host %q", host)
}

// validHostname checks RFC 952/1123 label syntax.
func validHostname(host string) bool {
	if len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			default:
				return false
			}
		}
	}
	return true
}

// --- Getters ---

// Host returns the configured controller host.
func (cfg *SessionConfig) Host() string { return cfg.host }

// Port returns the controller's UDP action port.
func (cfg *SessionConfig) Port() int { return cfg.port }

// SourcePort returns the local UDP source port.
func (cfg *SessionConfig) SourcePort() int { return cfg.sourcePort }

// Addr returns "host:port".
func (cfg *SessionConfig) Addr() string { return fmt.Sprintf("%s:%d", cfg.host, cfg.port) }

// Magic returns the configured swizzle key.
func (cfg *SessionConfig) Magic() byte { return cfg.magic }

// AckTimeout returns the per-frame acknowledgment timeout.
func (cfg *SessionConfig) AckTimeout() time.Duration { return cfg.ackTimeout }

// MaxRetries returns the retransmissions allowed per frame after the
// initial send.
func (cfg *SessionConfig) MaxRetries() int { return cfg.maxRetries }

// MaxPayload returns the maximum frame payload size in bytes.
func (cfg *SessionConfig) MaxPayload() int { return cfg.maxPayload }

// PollInterval returns the delay between status polls.
func (cfg *SessionConfig) PollInterval() time.Duration { return cfg.pollInterval }

// StablePolls returns the consecutive stable poll count for completion.
func (cfg *SessionConfig) StablePolls() int { return cfg.stablePolls }

// MinStableTime returns the minimum stable wall-clock duration, if any.
func (cfg *SessionConfig) MinStableTime() time.Duration { return cfg.minStableTime }

// MaxWait returns the bound on the whole polling phase.
func (cfg *SessionConfig) MaxWait() time.Duration { return cfg.maxWait }

// PositionTolMM returns the position delta treated as stationary.
func (cfg *SessionConfig) PositionTolMM() float64 { return cfg.positionTolMM }

// MovementOnly returns whether jobs are encoded with the beam disabled.
func (cfg *SessionConfig) MovementOnly() bool { return cfg.movementOnly }

// AirAssist returns the machine's air-assist default.
func (cfg *SessionConfig) AirAssist() bool { return cfg.airAssist }

// ZPositiveMovesBedUp returns the Z sign convention.
func (cfg *SessionConfig) ZPositiveMovesBedUp() bool { return cfg.zPositiveMovesBedUp }

// DryRun returns whether frames are logged instead of sent.
func (cfg *SessionConfig) DryRun() bool { return cfg.dryRun }

// SaveRDDir returns the directory for persisted .rd job dumps, or "".
func (cfg *SessionConfig) SaveRDDir() string { return cfg.saveRDDir }

// GetLogger returns the configured logger.
func (cfg *SessionConfig) GetLogger() logger.Logger { return cfg.logger }

// EncodeOptions derives the encoder policy from this configuration.
func (cfg *SessionConfig) EncodeOptions() EncodeOptions {
	return EncodeOptions{
		MovementOnly:        cfg.movementOnly,
		AirAssist:           cfg.airAssist,
		ZPositiveMovesBedUp: cfg.zPositiveMovesBedUp,
	}
}

// --- SessionOption ---

// SessionOption is a functional option for configuring a SessionConfig.
type SessionOption interface {
	apply(*SessionConfig) error
}

type sessionOptFunc func(*SessionConfig) error

func (f sessionOptFunc) apply(cfg *SessionConfig) error { return f(cfg) }

// WithPort sets the controller's UDP action port.
func WithPort(port int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if port < 1 || port > 65535 {
			return fmt.Errorf("ruida: port %d out of range [1, 65535]", port)
		}
		cfg.port = port

		return nil
	})
}

// WithSourcePort sets the local UDP source port. Zero selects an ephemeral
// port.
func WithSourcePort(port int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if port < 0 || port > 65535 {
			return fmt.Errorf("ruida: source port %d out of range [0, 65535]", port)
		}
		cfg.sourcePort = port

		return nil
	})
}

// WithSwizzleMagic sets the swizzle key directly.
func WithSwizzleMagic(magic byte) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		cfg.magic = magic

		return nil
	})
}

// WithProfile selects a controller family profile by name, configuring its
// swizzle key.
func WithProfile(name string) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		prof, ok := Profiles[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("ruida: unknown controller profile %q", name)
		}
		cfg.magic = prof.Magic

		return nil
	})
}

// WithAckTimeout sets the per-frame acknowledgment timeout.
func WithAckTimeout(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d < MinAckTimeout || d > MaxAckTimeout {
			return fmt.Errorf("ruida: ack timeout %v out of range [%v, %v]", d, MinAckTimeout, MaxAckTimeout)
		}
		cfg.ackTimeout = d

		return nil
	})
}

// WithMaxRetries sets the number of retransmissions allowed per frame after
// the initial send.
func WithMaxRetries(n int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if n < 1 || n > MaxRetryLimit {
			return fmt.Errorf("ruida: max retries %d out of range [1, %d]", n, MaxRetryLimit)
		}
		cfg.maxRetries = n

		return nil
	})
}

// WithMaxPayload sets the maximum frame payload size per datagram.
func WithMaxPayload(n int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if n < MinPayload || n > MaxPayload {
			return fmt.Errorf("ruida: max payload %d out of range [%d, %d]", n, MinPayload, MaxPayload)
		}
		cfg.maxPayload = n

		return nil
	})
}

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d <= 0 {
			return errors.New("ruida: poll interval must be positive")
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithStablePolls sets the consecutive stable poll count required for
// completion. Values below 2 defeat the stability detector and are rejected.
func WithStablePolls(n int) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if n < 2 {
			return errors.New("ruida: stable polls must be >= 2")
		}
		cfg.stablePolls = n

		return nil
	})
}

// WithMinStableTime additionally requires the stable streak to span a
// minimum wall-clock duration.
func WithMinStableTime(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d < 0 {
			return errors.New("ruida: min stable time must be non-negative")
		}
		cfg.minStableTime = d

		return nil
	})
}

// WithMaxWait bounds the whole status-polling phase.
func WithMaxWait(d time.Duration) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if d <= 0 {
			return errors.New("ruida: max wait must be positive")
		}
		cfg.maxWait = d

		return nil
	})
}

// WithPositionTolerance sets the position delta treated as stationary.
func WithPositionTolerance(mm float64) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if mm <= 0 {
			return errors.New("ruida: position tolerance must be positive")
		}
		cfg.positionTolMM = mm

		return nil
	})
}

// WithMovementOnly encodes all jobs with the beam disabled.
func WithMovementOnly(enabled bool) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		cfg.movementOnly = enabled

		return nil
	})
}

// WithAirAssist sets the machine's air-assist default.
func WithAirAssist(enabled bool) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		cfg.airAssist = enabled

		return nil
	})
}

// WithZPositiveMovesBedUp sets the Z sign convention.
func WithZPositiveMovesBedUp(enabled bool) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		cfg.zPositiveMovesBedUp = enabled

		return nil
	})
}

// WithDryRun builds and logs frames without sending them.
func WithDryRun(enabled bool) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		cfg.dryRun = enabled

		return nil
	})
}

// WithSaveRDDir persists each job's swizzled body as a .rd file under dir
// for offline inspection.
func WithSaveRDDir(dir string) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		cfg.saveRDDir = dir

		return nil
	})
}

// WithLogger sets the logger for the session.
func WithLogger(l logger.Logger) SessionOption {
	return sessionOptFunc(func(cfg *SessionConfig) error {
		if l == nil {
			return errors.New("ruida: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
