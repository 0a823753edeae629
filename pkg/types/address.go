package types

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Address maps the address_t composite column used on stores and orders.
// Line1, city, state, and postal code are required; the country defaults
// to US on both write and read.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	GeoHash    *string `json:"geohash,omitempty"`
}

// Value renders the address as a Postgres composite literal.
func (a Address) Value() (driver.Value, error) {
	required := []struct {
		name  string
		value string
	}{
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return nil, fmt.Errorf("address: missing %s", field.name)
		}
	}

	country := strings.TrimSpace(a.Country)
	if country == "" {
		country = "US"
	}

	parts := []string{
		quoteCompositeString(a.Line1),
		quoteCompositeNullable(a.Line2),
		quoteCompositeString(a.City),
		quoteCompositeString(a.State),
		quoteCompositeString(a.PostalCode),
		quoteCompositeString(country),
		strconv.FormatFloat(a.Lat, 'f', -1, 64),
		strconv.FormatFloat(a.Lng, 'f', -1, 64),
		quoteCompositeNullable(a.GeoHash),
	}
	return "(" + strings.Join(parts, ",") + ")", nil
}

// Scan decodes the composite literal Postgres hands back.
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("address: unsupported scan type %T", value)
	}

	fields, err := parseComposite(raw, 9)
	if err != nil {
		return err
	}

	a.Line1 = fields[0]
	a.Line2 = newCompositeNullable(fields[1])
	a.City = fields[2]
	a.State = fields[3]
	a.PostalCode = fields[4]

	country := strings.TrimSpace(fields[5])
	if country == "" || isCompositeNull(fields[5]) {
		country = "US"
	}
	a.Country = country

	a.Lat, err = compositeFloat("lat", fields[6])
	if err != nil {
		return err
	}
	a.Lng, err = compositeFloat("lng", fields[7])
	if err != nil {
		return err
	}

	a.GeoHash = newCompositeNullable(fields[8])
	return nil
}

func compositeFloat(name, field string) (float64, error) {
	if field == "" || isCompositeNull(field) {
		return 0, fmt.Errorf("address: %s missing", name)
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("address: parse %s %w", name, err)
	}
	return f, nil
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
