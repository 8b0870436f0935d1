// Package license сопоставляет тип лицензии тарифа с файлами бита,
// которые выдаются подписчику при загрузке.
package license

import (
	"github.com/magabrotheeeer/beatstore/internal/models"
	"github.com/magabrotheeeer/beatstore/internal/tier"
)

// Bundle — набор ссылок на файлы бита. Пустые поля не выдаются.
type Bundle struct {
	MP3   string  `json:"download_url"`
	WAV   *string `json:"wav,omitempty"`
	Stems *string `json:"stems,omitempty"`
}

type assets struct {
	mp3, wav, stems bool
}

var entitlements = map[tier.LicenseType]assets{
	tier.LicenseMP3Lease:         {mp3: true},
	tier.LicenseWAVLease:         {mp3: true, wav: true},
	tier.LicensePremiumUnlimited: {mp3: true, wav: true, stems: true},
}

// FilesFor возвращает файлы бита, разрешённые лицензией. Файл попадает в набор,
// только если лицензия его разрешает и он есть у бита; отсутствующие файлы
// пропускаются без ошибки. Неизвестная лицензия не даёт ничего.
func FilesFor(lt tier.LicenseType, beat models.Beat) Bundle {
	a := entitlements[lt]

	var b Bundle
	if a.mp3 {
		b.MP3 = beat.Audio
	}
	if a.wav && present(beat.WAV) {
		wav := *beat.WAV
		b.WAV = &wav
	}
	if a.stems && present(beat.Stems) {
		stems := *beat.Stems
		b.Stems = &stems
	}
	return b
}

func present(s *string) bool {
	return s != nil && *s != ""
}
