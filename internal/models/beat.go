package models

import "time"

// Beat — бит из каталога. Audio (mp3) есть всегда, WAV и Stems могут отсутствовать.
type Beat struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Producer      string    `json:"producer"`
	BPM           int       `json:"bpm"`
	Audio         string    `json:"audio"`
	WAV           *string   `json:"wav,omitempty"`
	Stems         *string   `json:"stems,omitempty"`
	DownloadCount int       `json:"download_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// DummyBeat используется для приёма данных нового бита из JSON-запроса.
type DummyBeat struct {
	Title    string `json:"title" validate:"required"`
	Producer string `json:"producer" validate:"required"`
	BPM      int    `json:"bpm" validate:"omitempty,gt=0"`
	Audio    string `json:"audio" validate:"required,url"`
	WAV      string `json:"wav,omitempty" validate:"omitempty,url"`
	Stems    string `json:"stems,omitempty" validate:"omitempty,url"`
}
