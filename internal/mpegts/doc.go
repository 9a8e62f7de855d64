// Package mpegts implements a pull-based MPEG-TS reader. It resynchronizes on
// the 0x47 sync byte, reassembles per-PID payloads, verifies PSI CRCs, and
// yields PAT, PMT, and PES units one at a time through [Reader.Next].
package mpegts
