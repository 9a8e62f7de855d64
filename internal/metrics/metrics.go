// Package metrics exports ingestion counters as Prometheus metrics. The
// counters live in the components themselves; the collector reads a
// snapshot of each on every scrape.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zsiec/austream/internal/driver"
	"github.com/zsiec/austream/internal/source"
	"github.com/zsiec/austream/internal/transport"
	"github.com/zsiec/austream/internal/tsdemux"
)

const namespace = "austream"

// Sources are the snapshot functions a Collector reads. Any may be nil; the
// bool results report whether the component currently exists.
type Sources struct {
	Live      func() (source.LiveStats, bool)
	File      func() (source.FileStats, bool)
	Transport func() (transport.Stats, bool)
	Demux     func() (tsdemux.Stats, bool)
	Driver    func() driver.Stats
}

// Collector implements prometheus.Collector over Sources.
type Collector struct {
	src Sources

	pulledPackets *prometheus.Desc
	pulledBytes   *prometheus.Desc
	queueReceived *prometheus.Desc
	queueDropped  *prometheus.Desc
	queueDepth    *prometheus.Desc
	queueCapacity *prometheus.Desc
	fileUnits     *prometheus.Desc
	fileBytes     *prometheus.Desc
	fileCached    *prometheus.Desc
	connBytes     *prometheus.Desc
	connReads     *prometheus.Desc
	connUptime    *prometheus.Desc
	tsPackets     *prometheus.Desc
	tsResync      *prometheus.Desc
	tsCCErrors    *prometheus.Desc
	tsSectionErrs *prometheus.Desc
	driverUnits   *prometheus.Desc
	driverBytes   *prometheus.Desc
	driverEmpty   *prometheus.Desc
	driverReloads *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a Collector reading src.
func NewCollector(src Sources) *Collector {
	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, subsystem, name), help, labels, nil)
	}
	return &Collector{
		src:           src,
		pulledPackets: desc("puller", "packets_total", "Packets pulled from the live source by class.", "class"),
		pulledBytes:   desc("puller", "bytes_total", "Payload bytes pulled from the live source by class.", "class"),
		queueReceived: desc("queue", "received_total", "Packets inserted into the packet queue."),
		queueDropped:  desc("queue", "dropped_total", "Oldest packets evicted because the queue was full."),
		queueDepth:    desc("queue", "depth", "Packets waiting in the queue."),
		queueCapacity: desc("queue", "capacity", "Maximum queue depth."),
		fileUnits:     desc("file", "units_total", "Access units cut from the input file."),
		fileBytes:     desc("file", "read_bytes_total", "Bytes read from the input file."),
		fileCached:    desc("file", "cached_bytes", "Bytes read but not yet returned as a unit."),
		connBytes:     desc("transport", "received_bytes_total", "Bytes received from the live transport.", "scheme"),
		connReads:     desc("transport", "reads_total", "Reads from the live transport.", "scheme"),
		connUptime:    desc("transport", "uptime_seconds", "Time since the live transport connected.", "scheme"),
		tsPackets:     desc("mpegts", "packets_total", "Transport stream packets parsed."),
		tsResync:      desc("mpegts", "resync_bytes_total", "Bytes skipped to regain packet alignment."),
		tsCCErrors:    desc("mpegts", "continuity_errors_total", "Continuity counter discontinuities."),
		tsSectionErrs: desc("mpegts", "section_errors_total", "PSI sections dropped for CRC or syntax errors."),
		driverUnits:   desc("driver", "units_total", "Units handed to the sink."),
		driverBytes:   desc("driver", "bytes_total", "Bytes handed to the sink."),
		driverEmpty:   desc("driver", "empty_polls_total", "Polls that returned no unit."),
		driverReloads: desc("driver", "reloads_total", "Source reloads."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.pulledPackets, c.pulledBytes,
		c.queueReceived, c.queueDropped, c.queueDepth, c.queueCapacity,
		c.fileUnits, c.fileBytes, c.fileCached,
		c.connBytes, c.connReads, c.connUptime,
		c.tsPackets, c.tsResync, c.tsCCErrors, c.tsSectionErrs,
		c.driverUnits, c.driverBytes, c.driverEmpty, c.driverReloads,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	if c.src.Live != nil {
		if s, ok := c.src.Live(); ok {
			counter(c.pulledPackets, s.Puller.VideoPackets, "video")
			counter(c.pulledPackets, s.Puller.AudioPackets, "audio")
			counter(c.pulledPackets, s.Puller.OtherPackets, "other")
			counter(c.pulledBytes, s.Puller.VideoBytes, "video")
			counter(c.pulledBytes, s.Puller.AudioBytes, "audio")
			counter(c.queueReceived, s.Queue.Received)
			counter(c.queueDropped, s.Queue.Dropped)
			gauge(c.queueDepth, float64(s.Queue.Depth))
			gauge(c.queueCapacity, float64(s.Queue.Capacity))
		}
	}
	if c.src.File != nil {
		if s, ok := c.src.File(); ok {
			counter(c.fileUnits, s.Units)
			counter(c.fileBytes, s.BytesRead)
			gauge(c.fileCached, float64(s.Cached))
		}
	}
	if c.src.Transport != nil {
		if s, ok := c.src.Transport(); ok {
			counter(c.connBytes, s.BytesReceived, s.Scheme)
			counter(c.connReads, s.ReadCount, s.Scheme)
			gauge(c.connUptime, s.Uptime.Seconds(), s.Scheme)
		}
	}
	if c.src.Demux != nil {
		if s, ok := c.src.Demux(); ok {
			counter(c.tsPackets, s.Reader.Packets)
			counter(c.tsResync, s.Reader.ResyncBytes)
			counter(c.tsCCErrors, s.Reader.ContinuityErrors)
			counter(c.tsSectionErrs, s.Reader.SectionErrors)
		}
	}
	if c.src.Driver != nil {
		s := c.src.Driver()
		counter(c.driverUnits, s.Units)
		counter(c.driverBytes, s.Bytes)
		counter(c.driverEmpty, s.EmptyPolls)
		counter(c.driverReloads, s.Reloads)
	}
}
