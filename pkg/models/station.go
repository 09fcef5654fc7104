package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	OutputFormatMP3  = "mp3"
	OutputFormatFLAC = "flac"
)

// Station is a stream source in the catalog. The scheduling core treats
// stations as read-only reference data.
type Station struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	Name         string    `db:"name"          json:"name"`
	StreamURL    string    `db:"stream_url"    json:"stream_url"`
	City         string    `db:"city"          json:"city"`
	State        string    `db:"state"         json:"state"`
	BitrateKbps  int       `db:"bitrate_kbps"  json:"bitrate_kbps"`
	OutputFormat string    `db:"output_format" json:"output_format"`
	Favorite     bool      `db:"favorite"      json:"favorite"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"    json:"updated_at"`
}
