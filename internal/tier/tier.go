// Package tier описывает тарифы подписки магазина битов: цену, месячную квоту
// загрузок, тип лицензии и список преимуществ. Каталог тарифов неизменяем после
// создания и передаётся в сервисы явно.
package tier

import (
	"fmt"
	"sort"
)

// LicenseType — тип лицензии, определяющий набор файлов бита, доступных подписчику.
type LicenseType string

const (
	// LicenseMP3Lease — только mp3.
	LicenseMP3Lease LicenseType = "MP3_LEASE"
	// LicenseWAVLease — mp3 и wav.
	LicenseWAVLease LicenseType = "WAV_LEASE"
	// LicensePremiumUnlimited — mp3, wav и stems.
	LicensePremiumUnlimited LicenseType = "PREMIUM_UNLIMITED"
)

// UnlimitedBeats — значение BeatsPerMonth для безлимитного тарифа.
const UnlimitedBeats = -1

// Valid сообщает, известен ли тип лицензии.
func (l LicenseType) Valid() bool {
	switch l {
	case LicenseMP3Lease, LicenseWAVLease, LicensePremiumUnlimited:
		return true
	}
	return false
}

// Benefits — то, что даёт тариф.
type Benefits struct {
	BeatsPerMonth      int         `json:"beats_per_month" yaml:"beats_per_month"`
	LicenseType        LicenseType `json:"license_type" yaml:"license_type"`
	DiscountPercentage int         `json:"discount_percentage" yaml:"discount_percentage"`
}

// Tier — тариф подписки.
type Tier struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	PriceCents int      `json:"price_cents" yaml:"price_cents"`
	Color      string   `json:"color" yaml:"color"`
	Benefits   Benefits `json:"benefits" yaml:"benefits"`
	Features   []string `json:"features,omitempty" yaml:"features"`
}

// Limit возвращает месячную квоту тарифа.
func (t Tier) Limit() Quota {
	if t.Benefits.BeatsPerMonth == UnlimitedBeats {
		return Unlimited
	}
	return Finite(t.Benefits.BeatsPerMonth)
}

// Catalog — неизменяемый набор тарифов с доступом по ID.
type Catalog struct {
	byID  map[string]Tier
	order []string
}

// NewCatalog строит каталог. ID тарифов должны быть уникальны и непусты,
// BeatsPerMonth >= -1, тип лицензии известен.
func NewCatalog(tiers []Tier) (*Catalog, error) {
	const op = "tier.NewCatalog"
	c := &Catalog{byID: make(map[string]Tier, len(tiers))}
	for _, t := range tiers {
		if t.ID == "" {
			return nil, fmt.Errorf("%s: tier with empty id", op)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate tier id %q", op, t.ID)
		}
		if t.Benefits.BeatsPerMonth < UnlimitedBeats {
			return nil, fmt.Errorf("%s: tier %q: beats_per_month must be >= -1", op, t.ID)
		}
		if !t.Benefits.LicenseType.Valid() {
			return nil, fmt.Errorf("%s: tier %q: unknown license type %q", op, t.ID, t.Benefits.LicenseType)
		}
		t.Features = append([]string(nil), t.Features...)
		c.byID[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c, nil
}

// Lookup возвращает тариф по ID.
func (c *Catalog) Lookup(id string) (Tier, bool) {
	t, ok := c.byID[id]
	return t, ok
}

// All возвращает тарифы в порядке от дешёвого к дорогому.
func (c *Catalog) All() []Tier {
	res := make([]Tier, 0, len(c.order))
	for _, id := range c.order {
		res = append(res, c.byID[id])
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].PriceCents < res[j].PriceCents
	})
	return res
}

// Defaults — тарифы магазина по умолчанию.
func Defaults() []Tier {
	return []Tier{
		{
			ID:         "basic",
			Name:       "Basic",
			PriceCents: 999,
			Color:      "#3b82f6",
			Benefits: Benefits{
				BeatsPerMonth:      5,
				LicenseType:        LicenseMP3Lease,
				DiscountPercentage: 10,
			},
			Features: []string{"5 beats per month", "MP3 lease", "10% off store purchases"},
		},
		{
			ID:         "pro",
			Name:       "Pro",
			PriceCents: 1999,
			Color:      "#8b5cf6",
			Benefits: Benefits{
				BeatsPerMonth:      15,
				LicenseType:        LicenseWAVLease,
				DiscountPercentage: 20,
			},
			Features: []string{"15 beats per month", "WAV + MP3 lease", "20% off store purchases"},
		},
		{
			ID:         "unlimited",
			Name:       "Unlimited",
			PriceCents: 4999,
			Color:      "#f59e0b",
			Benefits: Benefits{
				BeatsPerMonth:      UnlimitedBeats,
				LicenseType:        LicensePremiumUnlimited,
				DiscountPercentage: 30,
			},
			Features: []string{"Unlimited beats", "Stems + WAV + MP3", "30% off store purchases"},
		},
	}
}

// MustDefaultCatalog возвращает каталог тарифов по умолчанию.
func MustDefaultCatalog() *Catalog {
	c, err := NewCatalog(Defaults())
	if err != nil {
		panic(err)
	}
	return c
}
