package domain

import (
	"encoding/json"
	"time"
)

// NormalizedSnapshot is one ingested save state. Known fields carry typed
// structure; everything the recognized-path table does not match is kept
// verbatim under Unknown so schema drift never loses data. A snapshot is
// immutable once built.
type NormalizedSnapshot struct {
	SnapshotID string    `json:"snapshot_id"`
	CapturedAt time.Time `json:"captured_at"`

	// In-simulation time. GameDay may regress when the player reloads an
	// older save; stores must tolerate that, ordering by GameDay.
	GameDay  int    `json:"game_day"`
	GameDate string `json:"game_date"`

	Known KnownFields `json:"known"`

	// KnownPaths lists every input leaf consumed into Known, including
	// explicit nulls, so losslessness can be audited.
	KnownPaths []KnownPath `json:"known_paths"`

	// Unknown preserves unmatched leaves in document order.
	Unknown []UnknownField `json:"unknown"`
}

// KnownPath records one consumed leaf. Null marks a field that was
// explicitly present with a null value ("intentionally unset"), as
// opposed to being absent from the document.
type KnownPath struct {
	Path string `json:"path"`
	Null bool   `json:"null,omitempty"`
}

// UnknownField is an unrecognized leaf kept verbatim, keyed by its full
// structural path with array indices included.
type UnknownField struct {
	Path string          `json:"path"`
	Raw  json.RawMessage `json:"raw"`
}

// KnownFields groups the typed extraction by category.
type KnownFields struct {
	Identity  Identity        `json:"identity"`
	Finances  Finances        `json:"finances"`
	Workforce Workforce       `json:"workforce"`
	Features  []Feature       `json:"features"`
	Products  []Product       `json:"products"`
	Inventory []InventoryItem `json:"inventory"`
	Research  Research        `json:"research"`
}

type Identity struct {
	GameID       string `json:"game_id,omitempty"`
	CompanyName  string `json:"company_name"`
	SaveGameName string `json:"save_game_name,omitempty"`
	Started      string `json:"started,omitempty"`
}

type Finances struct {
	Balance          float64  `json:"balance"`
	LastPricePerHour *float64 `json:"last_price_per_hour,omitempty"`
}

type Workforce struct {
	Employees []Employee `json:"employees"`
}

// Employee is one occupied workstation. Index is the workstation array
// position in the raw document.
type Employee struct {
	Index       int      `json:"index"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Salary      float64  `json:"salary"`
	Level       string   `json:"level,omitempty"`
	Mood        *float64 `json:"mood,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`
	IdleMinutes *float64 `json:"idle_minutes,omitempty"`
	Assignment  *string  `json:"assignment,omitempty"`
	QueueLength int      `json:"queue_length"`
}

// Idle reports whether the employee has no active assignment and an
// empty work queue.
func (e Employee) Idle() bool {
	return (e.Assignment == nil || *e.Assignment == "") && e.QueueLength == 0
}

// Gauge is a current/target pair such as feature quality.
type Gauge struct {
	Current float64 `json:"current"`
	Max     float64 `json:"max"`
}

// Gap is the distance left to the target level.
func (g Gauge) Gap() float64 { return g.Max - g.Current }

type Feature struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Activated  *bool  `json:"activated,omitempty"`
	Level      *int   `json:"level,omitempty"`
	Quality    Gauge  `json:"quality"`
	Efficiency Gauge  `json:"efficiency"`
}

type Product struct {
	Index        int      `json:"index"`
	Name         string   `json:"name"`
	Users        *float64 `json:"users,omitempty"`
	Satisfaction *float64 `json:"satisfaction,omitempty"`
}

type InventoryItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Amount returns the inventory count for an item, zero when the item is
// not stocked.
func (k KnownFields) Amount(item string) float64 {
	for _, it := range k.Inventory {
		if it.Name == item {
			return it.Amount
		}
	}
	return 0
}

type Research struct {
	XP             *float64 `json:"xp,omitempty"`
	ResearchPoints *float64 `json:"research_points,omitempty"`
	CUCurrent      *float64 `json:"cu_current,omitempty"`
	CUMax          *float64 `json:"cu_max,omitempty"`
}
