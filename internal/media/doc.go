// Package media defines the packet and stream metadata types that flow from a
// demuxing library through the puller and queue to a downstream decoder driver,
// along with the error taxonomy shared by every packet source.
package media
