package cache

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/feedload/pkg/errors"
)

// DefaultExpiry is the time-to-live used when none is configured.
const DefaultExpiry Expiry = "1 day"

// Expiry is a time-to-live expression. Accepted forms:
//
//	"3600"                raw seconds
//	"36h", "90m"          Go duration syntax
//	"1 day"               a count and a unit
//	"+1 week 2 days"      several pairs, with optional signs
//	"2 hours ago"         negated; nothing is ever fresh
//
// Units are second, minute, hour, day, week, fortnight, month and year, in
// singular, plural or the usual short forms. Months and years are calendar
// units: the expression is resolved against the current time on every load,
// so "1 month" is 28 to 31 days.
type Expiry string

// Validate reports whether the expression can be parsed.
func (e Expiry) Validate() error {
	_, err := e.parse()
	return err
}

// TTL resolves the expression relative to now.
func (e Expiry) TTL(now time.Time) (time.Duration, error) {
	sp, err := e.parse()
	if err != nil {
		return 0, err
	}
	return sp.apply(now).Sub(now), nil
}

// span is a calendar-aware offset.
type span struct {
	years, months, days int
	d                   time.Duration
}

func (s span) apply(t time.Time) time.Time {
	return t.AddDate(s.years, s.months, s.days).Add(s.d)
}

func (s span) neg() span {
	return span{years: -s.years, months: -s.months, days: -s.days, d: -s.d}
}

var (
	secondsRe = regexp.MustCompile(`^[+-]?\d+$`)
	pairRe    = regexp.MustCompile(`^([+-]?)\s*(\d+)\s*([a-z]+)\.?\s*(?:,|and)?\s*`)
)

func (e Expiry) parse() (span, error) {
	s := strings.ToLower(strings.TrimSpace(string(e)))
	if s == "" {
		return span{}, errors.New(errors.ErrCodeInvalidExpiry, "empty expiry")
	}
	if secondsRe.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return span{}, errors.Wrap(errors.ErrCodeInvalidExpiry, err, "expiry %q", string(e))
		}
		return span{d: time.Duration(n) * time.Second}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return span{d: d}, nil
	}

	ago := false
	if rest, ok := strings.CutSuffix(s, " ago"); ok {
		s, ago = strings.TrimSpace(rest), true
	}

	var total span
	for s != "" {
		m := pairRe.FindStringSubmatch(s)
		if m == nil {
			return span{}, errors.New(errors.ErrCodeInvalidExpiry, "cannot parse expiry %q near %q", string(e), s)
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return span{}, errors.Wrap(errors.ErrCodeInvalidExpiry, err, "expiry %q", string(e))
		}
		if m[1] == "-" {
			n = -n
		}
		if err := total.add(n, m[3]); err != nil {
			return span{}, errors.Wrap(errors.ErrCodeInvalidExpiry, err, "expiry %q", string(e))
		}
		s = s[len(m[0]):]
	}
	if ago {
		total = total.neg()
	}
	return total, nil
}

func (s *span) add(n int, unit string) error {
	switch unit {
	case "s", "sec", "secs", "second", "seconds":
		s.d += time.Duration(n) * time.Second
	case "m", "min", "mins", "minute", "minutes":
		s.d += time.Duration(n) * time.Minute
	case "h", "hr", "hrs", "hour", "hours":
		s.d += time.Duration(n) * time.Hour
	case "d", "day", "days":
		s.days += n
	case "w", "wk", "wks", "week", "weeks":
		s.days += 7 * n
	case "fortnight", "fortnights":
		s.days += 14 * n
	case "mon", "mons", "month", "months":
		s.months += n
	case "y", "yr", "yrs", "year", "years":
		s.years += n
	default:
		return errors.New(errors.ErrCodeInvalidExpiry, "unknown unit %q", unit)
	}
	return nil
}
