package backend

import (
	"encoding/json"
	"fmt"
)

// Profile is the customer record returned by the PHP backend.
type Profile struct {
	ID             int64  `json:"id"`
	Name           string `json:"f_name"`
	LastName       string `json:"l_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	IsPersonalInfo int    `json:"is_personal_info"`
}

// VerifyResult is the outcome of OTP verification.
type VerifyResult struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
}

// GeocodeResult is the geocoder response for both forward and reverse
// lookups.
type GeocodeResult struct {
	Latitude         float64 `json:"lat"`
	Longitude        float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
}

// Zone identifies a serviceable area.
type Zone struct {
	ID   int
	Name string
}

// SavedAddress is a customer address on file.
type SavedAddress struct {
	ID           int64   `json:"id"`
	AddressType  string  `json:"address_type"`
	Address      string  `json:"address"`
	Latitude     float64 `json:"latitude,string"`
	Longitude    float64 `json:"longitude,string"`
	ContactName  string  `json:"contact_person_name"`
	ContactPhone string  `json:"contact_person_number"`
	Road         string  `json:"road"`
	House        string  `json:"house"`
	Floor        string  `json:"floor"`
}

// zoneResponse decodes the get-zone-id payload. zone_id arrives as a
// primitive, an array, or a JSON-string array depending on backend
// version; normalize to the first integer.
type zoneResponse struct {
	ZoneID   json.RawMessage `json:"zone_id"`
	ZoneName string          `json:"zone_name"`
}

func (z *zoneResponse) normalize() (int, error) {
	if len(z.ZoneID) == 0 {
		return 0, fmt.Errorf("zone_id missing")
	}

	var single int
	if err := json.Unmarshal(z.ZoneID, &single); err == nil {
		return single, nil
	}

	var list []int
	if err := json.Unmarshal(z.ZoneID, &list); err == nil {
		if len(list) == 0 {
			return 0, fmt.Errorf("zone_id array empty")
		}
		return list[0], nil
	}

	// JSON-string array: "\"[3,4]\"" or a plain numeric string.
	var str string
	if err := json.Unmarshal(z.ZoneID, &str); err == nil {
		var inner []int
		if err := json.Unmarshal([]byte(str), &inner); err == nil {
			if len(inner) == 0 {
				return 0, fmt.Errorf("zone_id array empty")
			}
			return inner[0], nil
		}
		var n int
		if err := json.Unmarshal([]byte(str), &n); err == nil {
			return n, nil
		}
	}

	return 0, fmt.Errorf("unrecognized zone_id shape: %s", string(z.ZoneID))
}
