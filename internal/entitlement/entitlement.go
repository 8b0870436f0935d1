// Package entitlement вычисляет остаток месячной квоты подписчика и решает,
// разрешена ли очередная загрузка. Неизвестный тариф трактуется как нулевая квота.
package entitlement

import (
	"github.com/magabrotheeeer/beatstore/internal/tier"
)

// Catalog описывает источник тарифов.
type Catalog interface {
	Lookup(id string) (tier.Tier, bool)
}

// Evaluator считает квоты по каталогу тарифов.
type Evaluator struct {
	catalog Catalog
}

// New создаёт Evaluator поверх каталога.
func New(catalog Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Limit возвращает месячный лимит тарифа; Finite(0) для неизвестного тарифа.
func (e *Evaluator) Limit(tierID string) tier.Quota {
	t, ok := e.catalog.Lookup(tierID)
	if !ok {
		return tier.Finite(0)
	}
	return t.Limit()
}

// Remaining возвращает остаток квоты при used загрузках в текущем месяце.
func (e *Evaluator) Remaining(tierID string, used int) tier.Quota {
	limit := e.Limit(tierID)
	if limit.IsUnlimited() {
		return tier.Unlimited
	}
	n, _ := limit.Count()
	return tier.Finite(n - used)
}

// CanDownload сообщает, можно ли скачать ещё один новый бит.
func (e *Evaluator) CanDownload(tierID string, used int) bool {
	return e.Remaining(tierID, used).Positive()
}
