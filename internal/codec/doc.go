// Package codec inspects elementary stream payloads: Annex-B NAL unit
// splitting, H.264 and H.265 SPS parsing for picture size, ADTS headers for
// AAC sample rate and channel count, and per-packet keyframe detection.
package codec
