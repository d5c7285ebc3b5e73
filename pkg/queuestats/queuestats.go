// Package queuestats turns the router's cumulative per-queue counters
// into per-cycle deltas, re-baselining on wraparound or counter reset.
package queuestats

// Cumulative is a raw counter snapshot as reported by the router.
type Cumulative struct {
	Packets       uint64
	Bytes         uint64
	Dropped       uint64
	QueuedPackets uint64
	QueuedBytes   uint64
}

// Delta is the per-cycle change derived from two Cumulative snapshots.
// QueuedPackets/QueuedBytes are carried through as instantaneous values,
// not differenced — they describe current occupancy, not throughput.
type Delta struct {
	Packets       uint64
	Bytes         uint64
	Dropped       uint64
	QueuedPackets uint64
	QueuedBytes   uint64
}

// Reader tracks the previous cumulative sample for one queue and
// produces deltas as new samples arrive.
type Reader struct {
	queueName string
	have      bool
	prev      Cumulative
}

// NewReader returns a Reader for the named queue with no prior sample.
func NewReader(queueName string) *Reader {
	return &Reader{queueName: queueName}
}

// Observe records a fresh Cumulative snapshot and returns the delta
// against the previous one, plus whether this call re-baselined (either
// the first observation, or a detected counter regression). A
// re-baseline's delta carries the snapshot's own values rather than a
// meaningful difference, matching the "first read after startup" rule.
func (r *Reader) Observe(cur Cumulative) (Delta, bool) {
	regressed := r.have && cur.Packets < r.prev.Packets
	rebaselined := !r.have || regressed

	var d Delta
	if rebaselined {
		d = Delta{
			Packets:       cur.Packets,
			Bytes:         cur.Bytes,
			Dropped:       cur.Dropped,
			QueuedPackets: cur.QueuedPackets,
			QueuedBytes:   cur.QueuedBytes,
		}
	} else {
		d = Delta{
			Packets:       cur.Packets - r.prev.Packets,
			Bytes:         cur.Bytes - r.prev.Bytes,
			Dropped:       cur.Dropped - r.prev.Dropped,
			QueuedPackets: cur.QueuedPackets,
			QueuedBytes:   cur.QueuedBytes,
		}
	}
	r.prev = cur
	r.have = true
	return d, rebaselined
}

// QueueName returns the queue this reader is tracking.
func (r *Reader) QueueName() string {
	return r.queueName
}
