// Package month содержит расчёт границ календарного месяца, по которым
// считается использование месячной квоты загрузок.
package month

import (
	"time"
)

// Start возвращает начало календарного месяца, в котором лежит t, в зоне loc.
// Границы месяца зависят от зоны: одна и та же точка времени может попасть
// в разные месяцы для UTC и для местного времени.
func Start(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, loc)
}

// Window — полуинтервал [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Contains сообщает, попадает ли t в окно.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// SoFar возвращает окно от начала текущего месяца до now.
func SoFar(now time.Time, loc *time.Location) Window {
	return Window{From: Start(now, loc), To: now}
}

// Next возвращает начало следующего месяца, когда квота обнуляется.
func Next(t time.Time, loc *time.Location) time.Time {
	return Start(t, loc).AddDate(0, 1, 0)
}
