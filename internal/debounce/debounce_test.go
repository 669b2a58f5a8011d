package debounce

import (
	"testing"
	"time"

	"github.com/ayusman/mindfultouch/internal/region"
)

const frame = time.Second / 30

func TestTracker_OnsetDelay(t *testing.T) {
	tests := []struct {
		name      string
		frames    int
		wantAlert bool
		firstOn   int // index of the first alerting frame, -1 if none
	}{
		{"ten frames reach dwell", 10, true, 9},
		{"five frames never alert", 5, false, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker([]region.Name{region.Scalp})
			start := time.Unix(1000, 0)
			dwell := Seconds(0.3)

			firstOn := -1
			for i := 0; i < tt.frames; i++ {
				now := start.Add(time.Duration(i) * time.Second / 30)
				tr.Update(region.Scalp, true, now, dwell)

				s := tr.State(region.Scalp)
				elapsed := now.Sub(start)
				if s.AlertActive != (elapsed >= dwell) {
					t.Fatalf("frame %d (%v): AlertActive = %v", i, elapsed, s.AlertActive)
				}
				if s.AlertActive && firstOn < 0 {
					firstOn = i
				}
			}

			if got := tr.State(region.Scalp).AlertActive; got != tt.wantAlert {
				t.Errorf("AlertActive = %v, want %v", got, tt.wantAlert)
			}
			if firstOn != tt.firstOn {
				t.Errorf("first alerting frame = %d, want %d", firstOn, tt.firstOn)
			}
		})
	}
}

func TestTracker_ImmediateRelease(t *testing.T) {
	tr := NewTracker([]region.Name{region.Eyebrows})
	start := time.Unix(0, 0)
	dwell := Seconds(0.2)

	for i := 0; i < 10; i++ {
		tr.Update(region.Eyebrows, true, start.Add(time.Duration(i)*frame), dwell)
	}
	if !tr.State(region.Eyebrows).AlertActive {
		t.Fatal("expected alert after dwell")
	}

	tx := tr.Update(region.Eyebrows, false, start.Add(10*frame), dwell)
	s := tr.State(region.Eyebrows)

	if s.AlertActive {
		t.Error("alert should clear on first frame without contact")
	}
	if s.ContactStart != nil {
		t.Error("contact start should reset")
	}
	if !tx.Ended {
		t.Error("expected Ended transition")
	}
	if s.LastAlert.IsZero() {
		t.Error("LastAlert should survive release")
	}
}

func TestTracker_Transitions(t *testing.T) {
	tr := NewTracker(nil)
	start := time.Unix(0, 0)
	dwell := 100 * time.Millisecond

	steps := []struct {
		at      time.Duration
		contact bool
		want    Transition
		phase   Phase
	}{
		{0, true, Transition{}, Pending},
		{50 * time.Millisecond, true, Transition{}, Pending},
		{100 * time.Millisecond, true, Transition{Started: true}, Alerting},
		{150 * time.Millisecond, true, Transition{}, Alerting},
		{200 * time.Millisecond, false, Transition{Ended: true}, Idle},
		{250 * time.Millisecond, false, Transition{}, Idle},
	}

	for _, st := range steps {
		got := tr.Update(region.Mouth, st.contact, start.Add(st.at), dwell)
		if got != st.want {
			t.Errorf("at %v: transition = %+v, want %+v", st.at, got, st.want)
		}
		if p := tr.State(region.Mouth).Phase(); p != st.phase {
			t.Errorf("at %v: phase = %s, want %s", st.at, p, st.phase)
		}
	}
}

func TestTracker_ZeroDwellAlertsImmediately(t *testing.T) {
	tr := NewTracker(nil)
	if got := tr.Update(region.Beard, true, time.Unix(0, 0), 0); !got.Started {
		t.Error("zero dwell should alert on first contact frame")
	}
}

func TestTracker_AlertingAndReset(t *testing.T) {
	order := []region.Name{region.Scalp, region.Eyebrows, region.Mouth}
	tr := NewTracker(order)
	now := time.Unix(0, 0)

	for _, n := range order {
		tr.Update(n, n != region.Eyebrows, now, 0)
	}

	got := tr.Alerting()
	if len(got) != 2 || got[0] != region.Scalp || got[1] != region.Mouth {
		t.Errorf("Alerting() = %v", got)
	}

	tr.Reset()
	if len(tr.Alerting()) != 0 {
		t.Error("Reset should clear alerts")
	}
	if tr.State(region.Scalp).Duration(now) != 0 {
		t.Error("Reset should clear contact start")
	}
}
