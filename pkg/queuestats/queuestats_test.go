package queuestats_test

import (
	"testing"

	"github.com/wanctl/wanctl/pkg/queuestats"
)

func TestReader_FirstObservationIsBaseline(t *testing.T) {
	r := queuestats.NewReader("dl-primary")
	d, rebaselined := r.Observe(queuestats.Cumulative{Packets: 1000, Bytes: 500000, Dropped: 2})
	if !rebaselined {
		t.Error("rebaselined = false on first observation, want true")
	}
	if d.Packets != 1000 {
		t.Errorf("Packets = %d, want 1000 (snapshot passthrough)", d.Packets)
	}
}

func TestReader_SecondObservationIsDelta(t *testing.T) {
	r := queuestats.NewReader("dl-primary")
	r.Observe(queuestats.Cumulative{Packets: 1000, Bytes: 500000, Dropped: 2})
	d, rebaselined := r.Observe(queuestats.Cumulative{Packets: 1200, Bytes: 600000, Dropped: 3, QueuedPackets: 5})
	if rebaselined {
		t.Error("rebaselined = true on steady increase, want false")
	}
	if d.Packets != 200 || d.Bytes != 100000 || d.Dropped != 1 {
		t.Errorf("Delta = %+v, want {Packets:200 Bytes:100000 Dropped:1}", d)
	}
	if d.QueuedPackets != 5 {
		t.Errorf("QueuedPackets = %d, want 5 (instantaneous, not differenced)", d.QueuedPackets)
	}
}

func TestReader_CounterRegressionRebaselines(t *testing.T) {
	r := queuestats.NewReader("dl-primary")
	r.Observe(queuestats.Cumulative{Packets: 5000})
	_, rebaselined := r.Observe(queuestats.Cumulative{Packets: 10})
	if !rebaselined {
		t.Error("rebaselined = false after counter regression, want true")
	}
}
