package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestNewTooltip(t *testing.T) {
	e := GeometryEntity{ID: "FRA", Properties: map[string]any{"id": "FRA", "admin": "France", "1950": 1.234}}

	tip := NewTooltip(e, "1950")

	assert.Equal(t, "France", tip.Label)
	assert.Equal(t, "1.23 °C", tip.Value)
	assert.True(t, tip.HasData)
}

func TestNewTooltip_NoData(t *testing.T) {
	e := GeometryEntity{ID: "ATA", Properties: map[string]any{"id": "ATA", "name": "Antarctica", "1950": -99.0}}

	tip := NewTooltip(e, "1950")

	assert.Equal(t, "Antarctica", tip.Label)
	assert.Equal(t, NoDataText, tip.Value)
	assert.False(t, tip.HasData)
}

func TestLabel_FallsBackToID(t *testing.T) {
	e := GeometryEntity{ID: "XKX", Properties: map[string]any{}}
	assert.Equal(t, "XKX", e.Label())
}

func TestNewSnapshot_UsesClock(t *testing.T) {
	at := time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	defer SetClock(nil)

	res := Join([]AttributeRow{row("A", "2000", "1")}, []GeometryEntity{entity("A"), entity("B")})
	snap := NewSnapshot(3, res)

	assert.Equal(t, int64(3), snap.Version)
	assert.Equal(t, at, snap.LoadedAt)
	assert.True(t, snap.HasPeriod("2000"))
	assert.False(t, snap.HasPeriod("2001"))

	got, ok := snap.Entity("B")
	assert.True(t, ok)
	assert.Equal(t, "B", got.ID)
	_, ok = snap.Entity("nope")
	assert.False(t, ok)
}
