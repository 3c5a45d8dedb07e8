package domain

import "fmt"

// NoDataText is shown in place of a value for entities without data.
const NoDataText = "no data"

// Tooltip is the hover text for one entity at one period.
type Tooltip struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Period  string `json:"period"`
	Value   string `json:"value"`
	HasData bool   `json:"hasData"`
}

// NewTooltip formats the entity's value for period in degrees Celsius with two
// decimals.
func NewTooltip(e GeometryEntity, period string) Tooltip {
	t := Tooltip{
		ID:     e.ID,
		Label:  e.Label(),
		Period: period,
		Value:  NoDataText,
	}
	if v, ok := ValidValue(e, period); ok {
		t.Value = fmt.Sprintf("%.2f °C", v)
		t.HasData = true
	}
	return t
}
