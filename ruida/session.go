package ruida

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/sayhiben/laserdove/logger"
)

// MachineState is one observation of the controller's status register and
// head position.
type MachineState struct {
	// StatusBits is the raw 4-byte machine status register.
	StatusBits uint32
	// X and Y are the absolute head position in millimeters; valid only when
	// HasPosition is true.
	X, Y        float64
	HasPosition bool
}

// Session owns the datagram socket, the swizzle key, the retry/timeout
// configuration, and the single in-flight job. Exactly one Session exists
// per run; there are no concurrent jobs.
//
// The job path (Submit, Wait) is strictly sequential. Status is observable
// concurrently through the StatusMgr and the register snapshot, so a caller
// wrapping Wait in a cooperative task can stay responsive to cancellation.
type Session struct {
	cfg     *SessionConfig
	logger  logger.Logger
	conn    DatagramConn
	sender  *frameSender
	status  *StatusMgr
	metrics *SessionMetrics

	// registers holds the latest raw value read from each controller memory
	// register, keyed by address. Written by the poll loop, readable from
	// any goroutine.
	registers *xsync.MapOf[uint16, []byte]

	inFlight atomic.Bool
	// job is the current in-flight job; guarded by jobMu.
	jobMu sync.Mutex
	job   *Job

	closed    atomic.Bool
	jobSerial atomic.Uint64
}

// NewSession opens a session to the configured controller. In dry-run mode
// no socket is opened; frames are logged instead of sent.
//
// The socket is held for the session lifetime and released by Close on all
// exit paths, including cancellation and fatal transport errors.
func NewSession(cfg *SessionConfig) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ruida: session config is nil")
	}

	s := &Session{
		cfg:       cfg,
		logger:    cfg.GetLogger().With("controller", cfg.Addr()),
		status:    NewStatusMgr(cfg.GetLogger()),
		metrics:   &SessionMetrics{},
		registers: xsync.NewMapOf[uint16, []byte](),
	}

	if !cfg.DryRun() {
		conn, err := dialUDP(cfg)
		if err != nil {
			return nil, err
		}
		s.conn = conn
		s.sender = newFrameSender(conn, cfg, s.logger, s.metrics)
	}

	s.logger.Info("session opened",
		"source_port", cfg.SourcePort(),
		"magic", fmt.Sprintf("0x%02X", cfg.Magic()),
		"dry_run", cfg.DryRun(),
		"movement_only", cfg.MovementOnly(),
	)

	return s, nil
}

// Close releases the socket. Safe to call multiple times.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.conn != nil {
		return s.conn.Close()
	}

	return nil
}

// Status returns the session's status manager.
func (s *Session) Status() *StatusMgr { return s.status }

// Metrics returns the session's metric counters.
func (s *Session) Metrics() *SessionMetrics { return s.metrics }

// Config returns the session configuration.
func (s *Session) Config() *SessionConfig { return s.cfg }

// Register returns the latest raw value read from a controller memory
// register, if the poller has observed one.
func (s *Session) Register(addr uint16) ([]byte, bool) {
	return s.registers.Load(addr)
}

// CaptureOrigin queries the controller's current absolute position once,
// before encoding begins. The encoder subtracts this point from every
// emitted coordinate, so the operator-set start point remains the job's
// logical (0,0,0) instead of the job relocating to machine zero.
//
// Z is anchored at the operator-zeroed 0; the controller exposes no
// readable Z register.
func (s *Session) CaptureOrigin(ctx context.Context) (Point3, error) {
	if s.cfg.DryRun() {
		return Point3{}, nil
	}

	x, err := s.readCoordRegister(ctx, MemCurrentX)
	if err != nil {
		return Point3{}, fmt.Errorf("ruida: capture origin X: %w", err)
	}
	y, err := s.readCoordRegister(ctx, MemCurrentY)
	if err != nil {
		return Point3{}, fmt.Errorf("ruida: capture origin Y: %w", err)
	}

	origin := Point3{X: x, Y: y}
	s.logger.Info("origin anchored", "origin", origin)

	return origin, nil
}

// Submit encodes cmds against a freshly captured origin and delivers the
// resulting job to the controller, frame by frame, each acknowledged before
// the next is sent.
//
// Submit fails fast with ErrJobInFlight while a previous job has not reached
// a terminal status; the wire protocol's in-order acknowledgment requirement
// makes interleaved jobs unsafe. On success the device status is
// StatusWaitingStart and the caller should drive a StatusPoller (see Wait)
// to a terminal state. A failed submission returns the device status to
// StatusIdle; whether to retry the entire job is the caller's decision.
func (s *Session) Submit(ctx context.Context, cmds []Command) (*Job, error) {
	if s.inFlight.Load() {
		return nil, ErrJobInFlight
	}

	origin, err := s.CaptureOrigin(ctx)
	if err != nil {
		return nil, err
	}

	return s.submitAt(ctx, cmds, origin)
}

// submitAt is Submit against a caller-supplied origin. The sequence runner
// uses it to anchor every block of a multi-job run to the origin captured
// once at run start.
func (s *Session) submitAt(ctx context.Context, cmds []Command, origin Point3) (*Job, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrJobInFlight
	}

	s.status.Reset()
	s.metrics.incJobSubmitCount()

	job, err := s.encodeJob(origin, cmds)
	if err != nil {
		s.endJob()

		return nil, err
	}

	if err := s.upload(ctx, job); err != nil {
		// The typed error (ErrRejected, ErrUnresponsive) already tells the
		// caller what happened; the session returns to idle so a corrected
		// job can be submitted without an intervening reset.
		s.status.Set(StatusIdle)
		s.metrics.incJobFaultedCount()
		s.endJob()

		return nil, err
	}

	s.jobMu.Lock()
	s.job = job
	s.jobMu.Unlock()

	return job, nil
}

// Wait drives a StatusPoller until the in-flight job reaches a terminal
// status, then releases the in-flight slot. See StatusPoller for the
// completion heuristic.
func (s *Session) Wait(ctx context.Context, baseline MachineState) (DeviceStatus, error) {
	defer s.endJob()

	poller := NewStatusPoller(s, baseline)
	status, err := poller.Wait(ctx)

	if status == StatusCompleted {
		s.metrics.incJobCompletedCount()
	} else {
		s.metrics.incJobFaultedCount()
	}

	return status, err
}

// Run is the whole job lifecycle: baseline read, Submit, Wait.
func (s *Session) Run(ctx context.Context, cmds []Command) (DeviceStatus, error) {
	baseline, err := s.Baseline(ctx)
	if err != nil {
		return s.status.Status(), err
	}

	if _, err := s.Submit(ctx, cmds); err != nil {
		return s.status.Status(), err
	}

	return s.Wait(ctx, baseline)
}

// Baseline reads the pre-job machine state the liveness detector compares
// against. In dry-run mode it is zero.
func (s *Session) Baseline(ctx context.Context) (MachineState, error) {
	if s.cfg.DryRun() {
		return MachineState{}, nil
	}

	return s.ReadMachineState(ctx)
}

// Stop issues a best-effort stop to the controller: a single unacknowledged,
// unretried frame. Used by cancellation, where blocking on a retry loop
// would defeat the point.
func (s *Session) Stop() error {
	if s.cfg.DryRun() || s.conn == nil {
		s.logger.Info("dry-run: stop suppressed")

		return nil
	}

	wire := NewFrame([]byte{opJobPrefix, opJobStop}).Pack(s.cfg.Magic())
	if err := s.conn.Send(wire); err != nil {
		return fmt.Errorf("ruida: send stop: %w", err)
	}
	s.metrics.incFrameSendCount()

	return nil
}

// ReadMachineState polls the status register and head position.
func (s *Session) ReadMachineState(ctx context.Context) (MachineState, error) {
	s.metrics.incPollCount()

	raw, err := s.readMemory(ctx, MemMachineStatus, 4)
	if err != nil {
		s.metrics.incPollErrCount()

		return MachineState{}, err
	}
	bits, err := decodeStatusBits(raw)
	if err != nil {
		s.metrics.incPollErrCount()

		return MachineState{}, err
	}

	state := MachineState{StatusBits: bits}

	x, errX := s.readCoordRegister(ctx, MemCurrentX)
	y, errY := s.readCoordRegister(ctx, MemCurrentY)
	if errX == nil && errY == nil {
		state.X, state.Y = x, y
		state.HasPosition = true
	}

	return state, nil
}

// encodeJob encodes cmds against origin, persisting the RD dump when
// configured.
func (s *Session) encodeJob(origin Point3, cmds []Command) (*Job, error) {
	job, err := EncodeJob(cmds, origin, s.cfg.EncodeOptions())
	if err != nil {
		return nil, err
	}

	if dir := s.cfg.SaveRDDir(); dir != "" {
		if err := s.saveRD(job); err != nil {
			// Persistence is diagnostic; a full disk must not block a cut.
			s.logger.Warn("failed to persist RD dump", "error", err)
		}
	}

	return job, nil
}

// upload chunks the job at opcode boundaries and sends each frame in order,
// blocking for its acknowledgment before the next.
func (s *Session) upload(ctx context.Context, job *Job) error {
	chunks, err := job.Chunks(s.cfg.MaxPayload())
	if err != nil {
		return err
	}

	if s.cfg.DryRun() {
		for i, chunk := range chunks {
			frame := NewFrame(chunk)
			s.logger.Info("dry-run frame",
				"index", i+1, "total", len(chunks),
				"bytes", len(chunk),
				"wire", fmt.Sprintf("% X", frame.Pack(s.cfg.Magic())),
			)
		}
		s.status.Set(StatusUploading)
		s.status.Set(StatusWaitingStart)

		return nil
	}

	s.status.Set(StatusUploading)

	for i, chunk := range chunks {
		if err := s.sender.sendFrame(ctx, NewFrame(chunk)); err != nil {
			return fmt.Errorf("ruida: frame %d/%d: %w", i+1, len(chunks), err)
		}
		s.logger.Debug("frame acknowledged", "index", i+1, "total", len(chunks), "bytes", len(chunk))
	}

	s.status.Set(StatusWaitingStart)
	s.logger.Info("job uploaded", "frames", len(chunks), "bytes", len(job.Body()))

	return nil
}

// readMemory issues a memory read for addr and returns at least expectedLen
// data bytes. Replies arrive either echoing the full read header or just the
// address, depending on firmware generation.
func (s *Session) readMemory(ctx context.Context, addr uint16, expectedLen int) ([]byte, error) {
	if s.sender == nil {
		return nil, ErrNoTransport
	}

	addrBytes := []byte{byte(addr >> 8), byte(addr)}
	payload := append([]byte{opMemoryPrefix, opMemoryRead}, addrBytes...)

	reply, err := s.sender.query(ctx, payload)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch {
	case len(reply) >= 4 && reply[0] == opMemoryPrefix && reply[1] == opMemoryReply &&
		reply[2] == addrBytes[0] && reply[3] == addrBytes[1]:
		data = reply[4:]
	case len(reply) >= 2 && reply[0] == addrBytes[0] && reply[1] == addrBytes[1]:
		data = reply[2:]
	default:
		return nil, fmt.Errorf("%w: register 0x%04X reply % X", ErrMalformedReply, addr, reply)
	}

	if len(data) < expectedLen {
		return nil, fmt.Errorf("%w: register 0x%04X reply truncated to %d bytes, want %d",
			ErrMalformedReply, addr, len(data), expectedLen)
	}

	s.registers.Store(addr, data[:expectedLen])

	return data[:expectedLen], nil
}

// readCoordRegister reads a coordinate register and decodes it to millimeters.
func (s *Session) readCoordRegister(ctx context.Context, addr uint16) (float64, error) {
	raw, err := s.readMemory(ctx, addr, coordSize)
	if err != nil {
		return 0, err
	}

	return decodeCoordMM(raw)
}

// saveRD writes the swizzled job body as a .rd file for offline inspection
// with vendor tooling.
func (s *Session) saveRD(job *Job) error {
	if err := os.MkdirAll(s.cfg.SaveRDDir(), 0o755); err != nil {
		return err
	}

	serial := s.jobSerial.Add(1)
	path := filepath.Join(s.cfg.SaveRDDir(), fmt.Sprintf("job_%03d.rd", serial))
	if err := os.WriteFile(path, Swizzle(job.Body(), s.cfg.Magic()), 0o644); err != nil {
		return err
	}
	s.logger.Info("saved RD dump", "path", path)

	return nil
}

// endJob releases the in-flight slot and drops the job reference; the job is
// owned by the encoding call that built it and discarded after terminal
// status.
func (s *Session) endJob() {
	s.jobMu.Lock()
	s.job = nil
	s.jobMu.Unlock()
	s.inFlight.Store(false)
}
