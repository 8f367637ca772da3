// Package playback tracks how much of a chapter video a learner has watched.
package playback

import "math"

// SkipTolerance is how far, in seconds, a reported position may run ahead of
// the furthest watched point before it counts as a forward seek.
const SkipTolerance = 1.5

// Tracker follows the furthest point of continuous playback for one video
type Tracker struct {
	duration        float64
	requiredPercent float64
	maxWatched      float64
	watched         bool
}

// NewTracker starts tracking a video of the given duration (seconds) that
// must be watched to requiredPercent. A resumed session passes the
// previously persisted max-watched time as start.
func NewTracker(duration, requiredPercent, start float64) *Tracker {
	t := &Tracker{duration: duration, requiredPercent: requiredPercent}
	t.Advance(start)
	return t
}

// Observe feeds one polled playback position. When the position jumps more
// than SkipTolerance past the furthest watched point it is rejected and the
// player must seek back to the returned position.
func (t *Tracker) Observe(position float64) (seekTo float64, accepted bool) {
	if position > t.maxWatched+SkipTolerance {
		return t.maxWatched, false
	}
	t.Advance(position)
	return position, true
}

// Advance records a persisted watch time. The max never decreases.
func (t *Tracker) Advance(watchTime float64) float64 {
	if math.IsNaN(watchTime) || watchTime < 0 {
		return t.maxWatched
	}
	if t.duration > 0 && watchTime > t.duration {
		watchTime = t.duration
	}
	if watchTime > t.maxWatched {
		t.maxWatched = watchTime
	}
	if !t.watched && MeetsThreshold(t.maxWatched, t.duration, t.requiredPercent) {
		t.watched = true
	}
	return t.maxWatched
}

// MaxWatched returns the furthest watched position in seconds
func (t *Tracker) MaxWatched() float64 {
	return t.maxWatched
}

// Percentage returns the watched share of the video, 0-100
func (t *Tracker) Percentage() float64 {
	return Percentage(t.maxWatched, t.duration)
}

// Watched reports whether the threshold was reached. It never reverts.
func (t *Tracker) Watched() bool {
	return t.watched
}

// Percentage returns watchTime as a share of duration, capped at 100
func Percentage(watchTime, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	p := watchTime * 100 / duration
	if p > 100 {
		return 100
	}
	return p
}

// MeetsThreshold reports whether watchTime covers requiredPercent of duration
func MeetsThreshold(watchTime, duration, requiredPercent float64) bool {
	if duration <= 0 {
		return false
	}
	return Percentage(watchTime, duration) >= requiredPercent
}
