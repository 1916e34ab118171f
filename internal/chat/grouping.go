package chat

import (
	"time"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
)

// DayLabels controla cómo se rotulan los grupos por día.
type DayLabels struct {
	Today      string
	Yesterday  string
	DateLayout string
	Location   *time.Location
}

func DefaultDayLabels() DayLabels {
	return DayLabels{
		Today:      "Today",
		Yesterday:  "Yesterday",
		DateLayout: "02/01/2006",
		Location:   time.Local,
	}
}

// DayBucket agrupa los mensajes de un mismo día calendario.
type DayBucket struct {
	Day      time.Time
	Label    string
	Messages []domain.Message
}

// GroupByDay particiona el timeline por día calendario en labels.Location.
// Es una función pura: mismos argumentos, mismos grupos en el mismo orden.
func GroupByDay(timeline []domain.Message, now time.Time, labels DayLabels) []DayBucket {
	loc := labels.Location
	if loc == nil {
		loc = time.Local
	}
	today := startOfDay(now, loc)
	yesterday := today.AddDate(0, 0, -1)

	buckets := make([]DayBucket, 0)
	index := make(map[time.Time]int)
	for _, m := range timeline {
		day := startOfDay(m.Timestamp, loc)
		i, ok := index[day]
		if !ok {
			i = len(buckets)
			index[day] = i
			buckets = append(buckets, DayBucket{Day: day, Label: dayLabel(day, today, yesterday, labels)})
		}
		buckets[i].Messages = append(buckets[i].Messages, m)
	}
	return buckets
}

func dayLabel(day, today, yesterday time.Time, labels DayLabels) string {
	switch {
	case day.Equal(today):
		return labels.Today
	case day.Equal(yesterday):
		return labels.Yesterday
	}
	layout := labels.DateLayout
	if layout == "" {
		layout = "02/01/2006"
	}
	return day.Format(layout)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
