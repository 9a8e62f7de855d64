// Package tsdemux is a demuxing library for live MPEG-TS sources. It opens
// a byte stream through the transport package, discovers the elementary
// streams of the first program from its PMT, resolves codec parameters from
// in-band SPS and ADTS headers, and then yields one packet per PES.
package tsdemux
