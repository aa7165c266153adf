// Package backend is the client for the PHP commerce backend: customer
// auth (OTP), profiles, saved addresses, geocoding and zone lookups.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/httpclient"
)

// Client talks to the PHP backend. All calls carry the moduleid/zoneid
// headers the backend requires and a bounded timeout.
type Client struct {
	baseURL  string
	moduleID string
	zoneID   string
	http     *httpclient.Client
}

type Option func(*Client)

// WithHTTPClient overrides the retrying HTTP client (used in tests).
func WithHTTPClient(hc *httpclient.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithHeaders sets the default moduleid/zoneid headers.
func WithHeaders(moduleID, zoneID string) Option {
	return func(c *Client) {
		c.moduleID = moduleID
		c.zoneID = zoneID
	}
}

// NewClient creates a backend client. baseURL must be non-empty; this is
// validated at config load, not here.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		moduleID: "1",
		zoneID:   "1",
		http:     httpclient.New(httpclient.WithTimeout(8 * time.Second)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendOTP asks the backend to send a login OTP to phone.
func (c *Client) SendOTP(ctx context.Context, phone string) error {
	body := map[string]string{"phone": phone}
	return c.postJSON(ctx, "/api/v1/auth/send-otp", "", body, nil)
}

// VerifyOTP verifies the code and returns the auth token and user id.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*VerifyResult, error) {
	body := map[string]string{"phone": phone, "otp": code}
	var out VerifyResult
	if err := c.postJSON(ctx, "/api/v1/auth/verify-otp", "", body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("otp verification rejected")
	}
	return &out, nil
}

// GetProfile fetches the customer profile using the auth token.
func (c *Client) GetProfile(ctx context.Context, token string) (*Profile, error) {
	var out Profile
	if err := c.getJSON(ctx, "/api/v1/customer/info", nil, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUserInfo sets the customer's name and email after first login.
func (c *Client) UpdateUserInfo(ctx context.Context, token, name, email string) error {
	body := map[string]string{"f_name": name, "email": email}
	return c.postJSON(ctx, "/api/v1/customer/update-profile", token, body, nil)
}

// SavedAddresses lists the customer's saved addresses.
func (c *Client) SavedAddresses(ctx context.Context, token string) ([]SavedAddress, error) {
	var out struct {
		Addresses []SavedAddress `json:"addresses"`
	}
	if err := c.getJSON(ctx, "/api/v1/customer/address/list", nil, token, &out); err != nil {
		return nil, err
	}
	return out.Addresses, nil
}

// SaveAddress stores an address on the customer profile. Fire-and-forget
// callers log and swallow the error.
func (c *Client) SaveAddress(ctx context.Context, token string, addr SavedAddress) error {
	return c.postJSON(ctx, "/api/v1/customer/address/add", token, addr, nil)
}

// Geocode resolves free text to coordinates.
func (c *Client) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	q := url.Values{"address": {address}}
	var out GeocodeResult
	if err := c.getJSON(ctx, "/api/v1/config/geocode-api", q, "", &out); err != nil {
		return nil, err
	}
	if out.FormattedAddress == "" && out.Latitude == 0 && out.Longitude == 0 {
		return nil, fmt.Errorf("geocode returned no result for %q", address)
	}
	return &out, nil
}

// ReverseGeocode resolves coordinates to a formatted address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error) {
	q := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lng": {strconv.FormatFloat(lng, 'f', -1, 64)},
	}
	var out GeocodeResult
	if err := c.getJSON(ctx, "/api/v1/config/geocode-api", q, "", &out); err != nil {
		return nil, err
	}
	if out.FormattedAddress == "" {
		return nil, fmt.Errorf("reverse geocode returned no address")
	}
	return &out, nil
}

// GetZone resolves coordinates to a serviceable zone.
func (c *Client) GetZone(ctx context.Context, lat, lng float64) (*Zone, error) {
	q := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lng": {strconv.FormatFloat(lng, 'f', -1, 64)},
	}
	var raw zoneResponse
	if err := c.getJSON(ctx, "/api/v1/config/get-zone-id", q, "", &raw); err != nil {
		return nil, err
	}
	id, err := raw.normalize()
	if err != nil {
		return nil, err
	}
	return &Zone{ID: id, Name: raw.ZoneName}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, token string, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, token)

	return c.decode(req, path, out)
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(raw)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req, token)

	return c.decode(req, path, out)
}

func (c *Client) setHeaders(req *http.Request, token string) {
	req.Header.Set("moduleid", c.moduleID)
	req.Header.Set("zoneid", c.zoneID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) decode(req *http.Request, path string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s: %w", path, err)
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend %s decode: %w", path, err)
	}
	return nil
}
