package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL)
}

func TestGetZone_NormalizesShapes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantID  int
	}{
		{"primitive", `{"zone_id": 3, "zone_name": "Nashik Central"}`, 3},
		{"array", `{"zone_id": [5, 9], "zone_name": "Panchavati"}`, 5},
		{"json string array", `{"zone_id": "[7]", "zone_name": "CIDCO"}`, 7},
		{"numeric string", `{"zone_id": "4", "zone_name": "Gangapur Road"}`, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/config/get-zone-id", r.URL.Path)
				assert.NotEmpty(t, r.URL.Query().Get("lat"))
				_, _ = w.Write([]byte(tt.payload))
			})

			zone, err := client.GetZone(context.Background(), 19.99, 73.78)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, zone.ID)
			assert.NotEmpty(t, zone.Name)
		})
	}
}

func TestGetZone_EmptyArrayFails(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"zone_id": [], "zone_name": ""}`))
	})

	_, err := client.GetZone(context.Background(), 19.99, 73.78)
	assert.Error(t, err)
}

func TestGeocode_SendsRequiredHeaders(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.Header.Get("moduleid"))
		assert.Equal(t, "1", r.Header.Get("zoneid"))
		assert.Equal(t, "College Road Nashik", r.URL.Query().Get("address"))
		_ = json.NewEncoder(w).Encode(GeocodeResult{
			Latitude: 19.9975, Longitude: 73.7898, FormattedAddress: "College Road, Nashik",
		})
	})

	res, err := client.Geocode(context.Background(), "College Road Nashik")
	require.NoError(t, err)
	assert.Equal(t, 19.9975, res.Latitude)
	assert.Equal(t, "College Road, Nashik", res.FormattedAddress)
}

func TestVerifyOTP(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "9876543210", body["phone"])
		assert.Equal(t, "123456", body["otp"])
		_ = json.NewEncoder(w).Encode(VerifyResult{Token: "tok-1", UserID: 42})
	})

	res, err := client.VerifyOTP(context.Background(), "9876543210", "123456")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)
	assert.Equal(t, int64(42), res.UserID)
}

func TestVerifyOTP_Rejected(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.VerifyOTP(context.Background(), "9876543210", "000000")
	assert.Error(t, err)
}

func TestGetProfile_AuthHeader(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(Profile{ID: 42, Name: "Asha", IsPersonalInfo: 1})
	})

	p, err := client.GetProfile(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, 1, p.IsPersonalInfo)
}
