package simulation

import (
	"math"

	"tricys-client/pkg/events"
)

const exactMatchTolerance = 0.001

// Play starts the playback clock. Each tick advances the cursor by one
// simulation step. Calling Play while already playing does nothing.
func (s *Store) Play() {
	s.mu.Lock()
	if s.playing {
		s.mu.Unlock()
		return
	}
	s.playing = true
	stop := make(chan struct{})
	s.stopTick = stop
	ticker := s.tickerFn(s.interval)
	s.changedLocked("playing")
	s.unlock()

	go s.runClock(ticker, stop)
}

// Pause stops the clock and drops any pending tick.
func (s *Store) Pause() {
	s.mu.Lock()
	s.pauseLocked()
	s.unlock()
}

func (s *Store) TogglePlay() {
	if s.IsPlaying() {
		s.Pause()
		return
	}
	s.Play()
}

// StepTime moves the cursor by delta, clamped to [0, maxTime]. Reaching the
// end pauses playback.
func (s *Store) StepTime(delta float64) {
	s.mu.Lock()
	s.stepTimeLocked(delta)
	s.unlock()
}

// SetTime seeks to t, snapped to the nearest step within [0, maxTime].
func (s *Store) SetTime(t float64) {
	s.mu.Lock()
	s.currentTime = s.snapLocked(t)
	if s.series != nil {
		s.checkAlertsLocked()
	}
	s.emitLocked(events.TypePlaybackTick, map[string]interface{}{"time": s.currentTime})
	s.unlock()
}

func (s *Store) runClock(ticker Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			s.mu.Lock()
			if s.stopTick != stop {
				s.mu.Unlock()
				return
			}
			s.stepTimeLocked(s.step)
			s.deps.Metrics.ObserveTick()
			s.unlock()
		}
	}
}

func (s *Store) pauseLocked() {
	if s.playing {
		s.changedLocked("paused")
	}
	s.playing = false
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
}

func (s *Store) stepTimeLocked(delta float64) {
	if s.series == nil {
		return
	}
	t := roundMillis(s.currentTime + delta)
	if t >= s.maxTime {
		t = s.maxTime
		s.pauseLocked()
	}
	if t < 0 {
		t = 0
	}
	s.currentTime = t
	s.checkAlertsLocked()
	s.emitLocked(events.TypePlaybackTick, map[string]interface{}{"time": t})
}

// snapLocked clamps t into [0, maxTime] and rounds it to a multiple of the
// step. A snap that would overshoot maxTime falls back to the last step
// inside the range.
func (s *Store) snapLocked(t float64) float64 {
	if t > s.maxTime {
		t = s.maxTime
	}
	if t < 0 {
		t = 0
	}
	step := s.step
	if step <= 0 {
		return t
	}
	t = roundMillis(jsRound(t/step) * step)
	if t > s.maxTime {
		t = roundMillis(math.Floor(s.maxTime/step) * step)
	}
	return t
}

// CurrentDataSlice returns each component's value at the sample nearest the
// cursor.
func (s *Store) CurrentDataSlice() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataSliceLocked()
}

func (s *Store) dataSliceLocked() map[string]float64 {
	out := make(map[string]float64)
	if s.series == nil {
		return out
	}
	idx := nearestIndex(s.series.Time, s.currentTime)
	if idx < 0 {
		return out
	}
	for id, values := range s.series.Components {
		if idx < len(values) {
			out[id] = values[idx]
		}
	}
	return out
}

// nearestIndex finds the sample for target. A sample within 0.001 wins
// outright; otherwise the first sample with the smallest distance.
func nearestIndex(times []float64, target float64) int {
	idx := -1
	minDiff := math.Inf(1)
	for i, t := range times {
		diff := math.Abs(t - target)
		if diff < exactMatchTolerance {
			return i
		}
		if diff < minDiff {
			minDiff = diff
			idx = i
		}
	}
	return idx
}

func roundMillis(t float64) float64 {
	return jsRound(t*1000) / 1000
}

// jsRound rounds half up, toward positive infinity.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}
