package participant

import "time"

// Day is a calendar day under the UTC reset policy. The zero Day means "never stamped".
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// Today returns the UTC calendar day containing t.
func Today(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{Year: y, Month: m, Day: d}
}

// DayFromTime is Today for values read from the store; the zero time maps to the zero Day.
func DayFromTime(t time.Time) Day {
	if t.IsZero() {
		return Day{}
	}
	return Today(t)
}

func (d Day) IsZero() bool { return d == Day{} }

// Time returns midnight UTC of d, suitable for a DATE column.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Day) String() string {
	if d.IsZero() {
		return "never"
	}
	return d.Time().Format("2006-01-02")
}

// NeedsReset reports whether daily counters stamped on stored are stale on today.
func NeedsReset(stored, today Day) bool {
	return stored != today
}

// Counters is the mutable part of a participant touched by the distribution cycle.
type Counters struct {
	Received        int64 // broadcasts received today
	Sent            int64 // successful broadcasts sent today
	TotalReceived   int64
	Date            Day
	LastBroadcastAt time.Time
}

// ResetFor zeroes the daily counters and stamps today. TotalReceived is kept.
func (c Counters) ResetFor(today Day) Counters {
	c.Received = 0
	c.Sent = 0
	c.Date = today
	return c
}

// WithReceived applies one successful delivery to the receiving side.
func (c Counters) WithReceived(today Day) Counters {
	if NeedsReset(c.Date, today) {
		c.Received = 1
		c.Date = today
	} else {
		c.Received++
	}
	c.TotalReceived++
	return c
}

// WithSent applies a sender's successful deliveries of one cycle and moves its last
// broadcast time to now.
func (c Counters) WithSent(count int64, today Day, now time.Time) Counters {
	if NeedsReset(c.Date, today) {
		c.Sent = count
		c.Date = today
	} else {
		c.Sent += count
	}
	c.LastBroadcastAt = now
	return c
}
