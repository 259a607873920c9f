package tracker

import "time"

const (
	isoDate     = "2006-01-02"
	displayDate = "Mon Jan 02 2006"
)

// displayDateOf renders a stored YYYY-MM-DD date as e.g. "Mon Jan 01 2024".
// Values that don't parse are returned unchanged.
func displayDateOf(iso string) string {
	t, err := time.Parse(isoDate, iso)
	if err != nil {
		return iso
	}
	return t.Format(displayDate)
}

func isoDateOf(t time.Time) string {
	return t.Format(isoDate)
}
