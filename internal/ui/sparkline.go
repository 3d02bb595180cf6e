package ui

import "strings"

// SparklineChars are the eight bar heights, lowest first.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline keeps the most recent samples of a rate and renders them as a
// row of block characters scaled to the largest sample held.
type Sparkline struct {
	samples []float64
	head    int
	count   int
}

// NewSparkline returns a sparkline holding up to capacity samples.
func NewSparkline(capacity int) *Sparkline {
	if capacity <= 0 {
		capacity = 60
	}
	return &Sparkline{samples: make([]float64, capacity)}
}

// Add records a sample, evicting the oldest when full. Negative samples
// are stored as zero.
func (s *Sparkline) Add(value float64) {
	if value < 0 {
		value = 0
	}
	s.samples[s.head] = value
	s.head = (s.head + 1) % len(s.samples)
	s.count++
}

// Count returns the number of samples added since creation.
func (s *Sparkline) Count() int {
	return s.count
}

// Values returns the held samples, oldest first.
func (s *Sparkline) Values() []float64 {
	n := min(s.count, len(s.samples))
	out := make([]float64, 0, n)
	start := 0
	if s.count >= len(s.samples) {
		start = s.head
	}
	for i := 0; i < n; i++ {
		out = append(out, s.samples[(start+i)%len(s.samples)])
	}
	return out
}

// Max returns the largest held sample.
func (s *Sparkline) Max() float64 {
	var peak float64
	for _, v := range s.Values() {
		peak = max(peak, v)
	}
	return peak
}

// Render draws the newest width samples, right-aligned and left-padded
// with spaces.
func (s *Sparkline) Render(width int) string {
	if width <= 0 {
		width = len(s.samples)
	}
	values := s.Values()
	if len(values) > width {
		values = values[len(values)-width:]
	}

	peak := s.Max()
	var sb strings.Builder
	sb.Grow(width * 3)
	sb.WriteString(strings.Repeat(" ", width-len(values)))
	for _, v := range values {
		idx := 0
		if peak > 0 {
			idx = int(v / peak * float64(len(SparklineChars)-1))
		}
		sb.WriteRune(SparklineChars[min(max(idx, 0), len(SparklineChars)-1)])
	}
	return sb.String()
}
