// Package settings holds the read-only view of the EEPROM-backed
// configuration this core is handed at start of day. The store itself —
// persistence, numbered-setting validation, EEPROM wear levelling — is
// an external collaborator and out of scope (spec.md §1, §6); this
// package only carries the in-memory snapshot, its `$N=V` update, and
// the `$`-language formatting of it.
package settings

import (
	"fmt"
	"strconv"
)

// Mill-specific defaults from the original firmware's mm_constants.h.
const (
	DefaultStepsPerMM  = 188.97637795275
	DefaultRapidFeed   = 381.0 // mm/min
	DefaultFeed        = 381.0 // mm/min
	DefaultArcSegment  = 0.5   // mm, conservative default chord length
	MillVersion        = "0.1"
)

// Numbered setting indices, matching the original $N= protocol.
const (
	SettingXStepsPerMM = iota
	SettingYStepsPerMM
	SettingZStepsPerMM
	SettingStepPulseMicroseconds
	SettingDefaultFeedRate
	SettingDefaultSeekRate
	SettingMMPerArcSegment
	settingCount
)

// Snapshot is the settings view passed into the interpreter. The
// interpreter reads it, and changes it only through Store for `$N=V`
// lines. FeedRate/SeekRate are stored per-minute exactly as the
// EEPROM store keeps them; callers divide by 60 to get the mm/s the
// interpreter works in (mirrors gc_init's feed_rate = default/60).
type Snapshot struct {
	values [settingCount]float64
}

// NewDefault returns the snapshot the original firmware ships with on a
// freshly reset EEPROM.
func NewDefault() Snapshot {
	var s Snapshot
	s.values[SettingXStepsPerMM] = DefaultStepsPerMM
	s.values[SettingYStepsPerMM] = DefaultStepsPerMM
	s.values[SettingZStepsPerMM] = DefaultStepsPerMM
	s.values[SettingStepPulseMicroseconds] = 1
	s.values[SettingDefaultFeedRate] = DefaultFeed
	s.values[SettingDefaultSeekRate] = DefaultRapidFeed
	s.values[SettingMMPerArcSegment] = DefaultArcSegment
	return s
}

// DefaultFeedRate is settings.default_feed_rate, mm/min.
func (s Snapshot) DefaultFeedRate() float64 { return s.values[SettingDefaultFeedRate] }

// DefaultSeekRate is settings.default_seek_rate, mm/min.
func (s Snapshot) DefaultSeekRate() float64 { return s.values[SettingDefaultSeekRate] }

// MMPerArcSegment is settings.mm_per_arc_segment, mm.
func (s Snapshot) MMPerArcSegment() float64 { return s.values[SettingMMPerArcSegment] }

// Store records setting n with value v. It is a no-op on an out-of-range
// index, mirroring the original firmware's silent ignore of unknown
// setting numbers. The EEPROM write-through itself lives outside this
// core; Store only updates the in-memory snapshot held by this process.
func (s *Snapshot) Store(n int, v float64) {
	if n < 0 || n >= settingCount {
		return
	}
	s.values[n] = v
}

// Dump renders every numbered setting as `$N=V` lines, the bare `$`
// command from the original firmware's settings_dump.
func (s Snapshot) Dump() string {
	out := ""
	for i, v := range s.values {
		out += "$" + strconv.Itoa(i) + "=" + formatValue(v) + "\n"
	}
	return out
}

// MillInfo renders the one-line banner the original firmware's
// sp_millInfo prints for `$$`.
func (s Snapshot) MillInfo() string {
	return fmt.Sprintf("MezzoMill %s\n", MillVersion)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
