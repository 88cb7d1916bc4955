package domain

import "time"

// DateLayout is the medium-date/long-time format message and summary
// dates are persisted in. All persisted dates are UTC; the layout round
// trips losslessly at second precision.
const DateLayout = "Jan 2, 2006 at 3:04:05 PM MST"

func FormatDate(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
