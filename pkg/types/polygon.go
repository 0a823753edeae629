package types

import (
	"database/sql/driver"
	"encoding/json"
)

// Polygon is an ordered ring of vertices stored as JSONB. The ring is
// implicitly closed; the first vertex is not repeated at the end.
type Polygon []GeographyPoint

// Value serializes the ring to JSON.
func (p Polygon) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan decodes JSONB into the ring.
func (p *Polygon) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded Polygon
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*p = decoded
	return nil
}
