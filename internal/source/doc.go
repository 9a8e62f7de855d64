// Package source turns files and live streams into a sequence of decodable
// access units behind the PacketSource interface.
//
// A raw elementary-stream file is cut into units by FindBoundary. A live
// source runs a puller that feeds a bounded drop-oldest Queue, and units are
// drained from that queue.
package source
