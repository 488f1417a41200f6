// Package ruida implements the Ruida laser-cutter controller protocol:
// binary RD job encoding, byte-level payload obfuscation ("swizzling"),
// checksum framing, acknowledgment-based reliable delivery over UDP
// datagrams, and a device-status polling state machine.
//
// The wire protocol is reverse-engineered, not vendor-documented. Every wire
// constant (swizzle magic, opcode values, ACK/NACK bytes, memory register
// addresses) is treated as configuration data validated by golden tests, and
// is kept behind the codec interfaces so a corrected constant touches one
// place.
//
// The engine is deliberately single-threaded and synchronous: a Session owns
// one datagram socket and at most one in-flight Job, frames are sent and
// acknowledged strictly in order, and cancellation is a context checked at
// every retry and poll boundary rather than an asynchronous interrupt.
package ruida
