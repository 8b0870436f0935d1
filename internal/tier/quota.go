package tier

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// unlimitedJSON — представление безлимитной квоты в JSON-ответах.
const unlimitedJSON = "unlimited"

// Quota — количество загрузок: либо конечное число, либо безлимит.
// Нулевое значение соответствует Finite(0).
type Quota struct {
	n         int
	unlimited bool
}

// Unlimited — безлимитная квота.
var Unlimited = Quota{unlimited: true}

// Finite возвращает конечную квоту. Отрицательные значения приводятся к нулю.
func Finite(n int) Quota {
	if n < 0 {
		n = 0
	}
	return Quota{n: n}
}

// IsUnlimited сообщает, является ли квота безлимитной.
func (q Quota) IsUnlimited() bool {
	return q.unlimited
}

// Count возвращает конечное значение квоты; ok=false для безлимита.
func (q Quota) Count() (n int, ok bool) {
	if q.unlimited {
		return 0, false
	}
	return q.n, true
}

// Positive сообщает, осталась ли хотя бы одна загрузка.
func (q Quota) Positive() bool {
	return q.unlimited || q.n > 0
}

func (q Quota) String() string {
	if q.unlimited {
		return unlimitedJSON
	}
	return strconv.Itoa(q.n)
}

// MarshalJSON кодирует квоту числом или строкой "unlimited".
func (q Quota) MarshalJSON() ([]byte, error) {
	if q.unlimited {
		return json.Marshal(unlimitedJSON)
	}
	return json.Marshal(q.n)
}

// UnmarshalJSON принимает число или строку "unlimited".
func (q *Quota) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != unlimitedJSON {
			return fmt.Errorf("tier.Quota: unexpected value %q", s)
		}
		*q = Unlimited
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("tier.Quota: %w", err)
	}
	*q = Finite(n)
	return nil
}
