package feed

import (
	"fmt"
	"math"
	"time"
)

// RelativeAge форматирует возраст публикации фиксированными корзинами:
// «just now» до минуты, далее минуты, часы, дни, недели, месяцы и годы.
// Минуты округляются до ближайшего значения, остальные корзины — вниз.
func RelativeAge(ts, now time.Time) string {
	age := now.Sub(ts)
	if age < 0 {
		age = 0
	}
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		minutes := int(math.Round(age.Minutes()))
		if minutes >= 60 {
			return "1 hour"
		}
		if minutes < 1 {
			minutes = 1
		}
		return pluralize(minutes, "minute")
	case age < 24*time.Hour:
		return pluralize(int(age.Hours()), "hour")
	case age < 7*24*time.Hour:
		return pluralize(int(age/(24*time.Hour)), "day")
	case age < 30*24*time.Hour:
		return pluralize(int(age/(7*24*time.Hour)), "week")
	case age < 365*24*time.Hour:
		return pluralize(int(age/(30*24*time.Hour)), "month")
	default:
		return pluralize(int(age/(365*24*time.Hour)), "year")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
