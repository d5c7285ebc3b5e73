// Package pending buffers the last computed (download, upload) rate
// pair across router outages or rate-limit denials so a decision is
// never silently dropped — only ever applied late or discarded once
// stale.
package pending

import "time"

// Rate is a buffered (download, upload) pair awaiting application.
type Rate struct {
	DownloadBps float64
	UploadBps   float64
	QueuedAt    time.Time
}

// Buffer holds at most one pending Rate. A fresh Queue call always
// overwrites whatever was there, since only the most recent decision
// matters once the router becomes reachable again.
type Buffer struct {
	maxAge time.Duration
	now    func() time.Time
	rate   *Rate
}

// New returns an empty Buffer that considers a queued rate stale after
// maxAge.
func New(maxAge time.Duration) *Buffer {
	return &Buffer{maxAge: maxAge, now: time.Now}
}

// Queue overwrites the pending slot with a fresh rate pair.
func (b *Buffer) Queue(downloadBps, uploadBps float64) {
	b.rate = &Rate{DownloadBps: downloadBps, UploadBps: uploadBps, QueuedAt: b.now()}
}

// Clear empties the buffer, called after a successful router write.
func (b *Buffer) Clear() {
	b.rate = nil
}

// Empty reports whether the buffer currently holds nothing.
func (b *Buffer) Empty() bool {
	return b.rate == nil
}

// Take returns the pending rate if one exists and is not stale,
// clearing the buffer either way (a stale entry is dropped, a fresh one
// is considered consumed by the caller). The bool reports whether a
// fresh rate was returned.
func (b *Buffer) Take() (Rate, bool) {
	if b.rate == nil {
		return Rate{}, false
	}
	r := *b.rate
	stale := b.now().Sub(r.QueuedAt) > b.maxAge
	b.rate = nil
	if stale {
		return Rate{}, false
	}
	return r, true
}
