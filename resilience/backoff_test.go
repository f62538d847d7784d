package resilience

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestSchedules(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		want     []time.Duration
	}{
		{
			name:     "exponential",
			schedule: Exponential(10*time.Millisecond, 2.0),
			want:     []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 80 * time.Millisecond},
		},
		{
			name:     "exponential factor 3",
			schedule: Exponential(time.Second, 3.0),
			want:     []time.Duration{time.Second, 3 * time.Second, 9 * time.Second},
		},
		{
			name:     "constant",
			schedule: Constant(5 * time.Millisecond),
			want:     []time.Duration{5 * time.Millisecond, 5 * time.Millisecond, 5 * time.Millisecond},
		},
		{
			name:     "linear",
			schedule: Linear(10 * time.Millisecond),
			want:     []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond},
		},
		{
			name:     "fibonacci",
			schedule: Fibonacci(time.Millisecond),
			want:     []time.Duration{1 * time.Millisecond, 1 * time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 5 * time.Millisecond, 8 * time.Millisecond},
		},
		{
			name:     "capped exponential",
			schedule: WithCap(25*time.Millisecond, Exponential(10*time.Millisecond, 2.0)),
			want:     []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for n, want := range tt.want {
				if got := tt.schedule.Delay(n); got != want {
					t.Errorf("Delay(%d) = %v, want %v", n, got, want)
				}
			}
		})
	}
}

func TestExponential_NonDecreasing(t *testing.T) {
	for _, multiplier := range []float64{1.1, 1.5, 2.0, 10.0} {
		s := Exponential(time.Millisecond, multiplier)
		prev := s.Delay(0)
		for n := 1; n < 200; n++ {
			d := s.Delay(n)
			if d < prev {
				t.Fatalf("multiplier %v: Delay(%d) = %v < Delay(%d) = %v", multiplier, n, d, n-1, prev)
			}
			prev = d
		}
	}
}

func TestExponential_Saturates(t *testing.T) {
	s := Exponential(time.Second, 2.0)
	if got := s.Delay(500); got != time.Duration(math.MaxInt64) {
		t.Errorf("Delay(500) = %v, want max duration", got)
	}
}

func TestWithCap_NonPositiveLeavesScheduleUncapped(t *testing.T) {
	s := WithCap(0, Exponential(time.Second, 2.0))
	if got := s.Delay(3); got != 8*time.Second {
		t.Errorf("Delay(3) = %v, want 8s", got)
	}
}

func TestFullJitter(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 1000; i++ {
		got := FullJitter(d)
		if got < 0 || got > d {
			t.Fatalf("FullJitter(%v) = %v, want within [0, %v]", d, got, d)
		}
	}

	if got := FullJitter(0); got != 0 {
		t.Errorf("FullJitter(0) = %v, want 0", got)
	}
}

func TestRandomJitter(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 1000; i++ {
		got := RandomJitter(d)
		if got < d || got >= d+time.Second {
			t.Fatalf("RandomJitter(%v) = %v, want within [%v, %v)", d, got, d, d+time.Second)
		}
	}
}

func TestScheduleByName(t *testing.T) {
	tests := []struct {
		name string
		want time.Duration // Delay(2) with base 10ms, multiplier 2
	}{
		{"expo", 40 * time.Millisecond},
		{"", 40 * time.Millisecond},
		{"constant", 10 * time.Millisecond},
		{"fibo", 20 * time.Millisecond},
		{"linear", 30 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ScheduleByName(tt.name, 10*time.Millisecond, 2.0)
			if err != nil {
				t.Fatalf("ScheduleByName(%q) error = %v", tt.name, err)
			}
			if got := s.Delay(2); got != tt.want {
				t.Errorf("Delay(2) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduleByName_Unknown(t *testing.T) {
	_, err := ScheduleByName("runtime", time.Second, 2.0)
	if !errors.Is(err, ErrUnknownWaitGen) {
		t.Errorf("ScheduleByName() error = %v, want ErrUnknownWaitGen", err)
	}
}

func TestJitterByName(t *testing.T) {
	for _, name := range []string{"full", "full_jitter", "random", "random_jitter"} {
		j, err := JitterByName(name)
		if err != nil || j == nil {
			t.Errorf("JitterByName(%q) = %v, %v; want non-nil jitter", name, j, err)
		}
	}

	for _, name := range []string{"", "none"} {
		j, err := JitterByName(name)
		if err != nil || j != nil {
			t.Errorf("JitterByName(%q) = non-nil or error %v; want nil, nil", name, err)
		}
	}

	if _, err := JitterByName("gaussian"); err == nil {
		t.Error("JitterByName(gaussian) error = nil, want error")
	}
}
