package agenda

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SandLosT/Attendant/pkg/utils"
)

const dateLayout = "2006-01-02"

var (
	isoPrefix   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	brFull      = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	brShort     = regexp.MustCompile(`^(\d{2})/(\d{2})$`)
	isoInText   = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	brFullText  = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)
	brShortText = regexp.MustCompile(`\b(\d{2})/(\d{2})\b`)
)

// CanonicalDate converts YYYY-MM-DD, DD/MM/YYYY or DD/MM (year taken from now)
// into YYYY-MM-DD. Impossible calendar dates are rejected, never clamped.
func CanonicalDate(s string, now time.Time) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if m := isoPrefix.FindStringSubmatch(s); m != nil {
		return calendarDate(m[1], m[2], m[3])
	}
	if m := brFull.FindStringSubmatch(s); m != nil {
		return calendarDate(m[3], m[2], m[1])
	}
	if m := brShort.FindStringSubmatch(s); m != nil {
		return calendarDate(strconv.Itoa(now.Year()), m[2], m[1])
	}
	return "", false
}

// NormalizePeriod maps free text to a period by substring after folding
// accents and case. There is no default period.
func NormalizePeriod(s string) (Period, bool) {
	f := utils.Fold(s)
	switch {
	case strings.Contains(f, "manha"):
		return PeriodMorning, true
	case strings.Contains(f, "tarde"):
		return PeriodAfternoon, true
	default:
		return "", false
	}
}

// ExtractDateAndPeriod pulls the first date and any period out of a message.
// Date formats are tried in order ISO, DD/MM/YYYY, DD/MM; the first format
// present decides, even when its date turns out invalid.
func ExtractDateAndPeriod(text string, now time.Time) (string, Period) {
	period, _ := NormalizePeriod(text)

	if m := isoInText.FindStringSubmatch(text); m != nil {
		d, _ := calendarDate(m[1], m[2], m[3])
		return d, period
	}
	if m := brFullText.FindStringSubmatch(text); m != nil {
		d, _ := calendarDate(m[3], m[2], m[1])
		return d, period
	}
	if m := brShortText.FindStringSubmatch(text); m != nil {
		d, _ := calendarDate(strconv.Itoa(now.Year()), m[2], m[1])
		return d, period
	}
	return "", period
}

// WeekOf returns the Monday..Sunday week containing date.
func WeekOf(date string) (Week, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return Week{}, ErrInvalidArgument
	}
	back := (int(t.Weekday()) + 6) % 7
	start := t.AddDate(0, 0, -back)
	return Week{
		Start: start.Format(dateLayout),
		End:   start.AddDate(0, 0, 6).Format(dateLayout),
	}, nil
}

// AddDays shifts a canonical date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", ErrInvalidArgument
	}
	return t.AddDate(0, 0, n).Format(dateLayout), nil
}

// FormatBR renders a canonical date as DD/MM/YYYY for customer messages.
func FormatBR(date string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("02/01/2006")
}

// Today is now's calendar date in now's location.
func Today(now time.Time) string {
	return now.Format(dateLayout)
}

func calendarDate(year, month, day string) (string, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return t.Format(dateLayout), true
}
