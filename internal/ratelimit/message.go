package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// timeLabel renders a count with the Polish case ending picked from the
// count's last digit: 1 takes "-ę", 2 through 4 take "-y", everything
// else keeps the bare base. Zero counts render as nothing.
func timeLabel(count int, wordBase string) string {
	if count == 0 {
		return ""
	}
	lastDigit := count % 10
	switch {
	case lastDigit == 1:
		return fmt.Sprintf("%d %sę", count, wordBase)
	case lastDigit >= 2 && lastDigit <= 4:
		return fmt.Sprintf("%d %sy", count, wordBase)
	default:
		return fmt.Sprintf("%d %s", count, wordBase)
	}
}

// limitMessage formats the warning shown to a caller who exhausted the
// quota. Hours and minutes are rounded down, seconds up, and zero
// components are omitted.
func limitMessage(retryIn time.Duration) string {
	hours := int(retryIn / time.Hour)
	minutes := int((retryIn % time.Hour) / time.Minute)
	seconds := int((retryIn%time.Minute + time.Second - 1) / time.Second)

	var b strings.Builder
	b.WriteString("Przekroczyłeś limit zapytań, kolejne pytanie będziesz mógł zadać za")
	for _, label := range []string{
		timeLabel(hours, "godzin"),
		timeLabel(minutes, "minut"),
		timeLabel(seconds, "sekund"),
	} {
		if label != "" {
			b.WriteString(" ")
			b.WriteString(label)
		}
	}
	b.WriteString(".")
	return b.String()
}
