// Package hue implements a minimal REST client for a Philips Hue bridge.
package hue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"
)

// Update is a single light command. Fields are pointers so "unset" is
// distinguishable from "set to zero/off".
type Update struct {
	LightID    string
	On         *bool
	Red        *uint8
	Green      *uint8
	Blue       *uint8
	Brightness *uint8 // 1-254, Hue's native range
}

// Client talks to one bridge using a previously-paired username.
type Client struct {
	BridgeIP string
	Username string
	HTTP     *http.Client
}

// New returns a Client for the given bridge IP and paired username.
func New(bridgeIP, username string) *Client {
	return &Client{BridgeIP: bridgeIP, Username: username, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

type stateBody struct {
	On  *bool  `json:"on,omitempty"`
	Hue *int   `json:"hue,omitempty"`
	Sat *int   `json:"sat,omitempty"`
	Bri *uint8 `json:"bri,omitempty"`
}

// Apply sends one light's state update to the bridge.
func (c *Client) Apply(u Update) error {
	body := stateBody{On: u.On, Bri: u.Brightness}

	if u.Red != nil && u.Green != nil && u.Blue != nil {
		hue, sat := rgbToHueSat(*u.Red, *u.Green, *u.Blue)
		body.Hue = &hue
		body.Sat = &sat
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("hue: marshal state: %w", err)
	}

	url := fmt.Sprintf("http://%s/api/%s/lights/%s/state", c.BridgeIP, c.Username, u.LightID)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("hue: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("hue: request light %s: %w", u.LightID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("hue: bridge rejected update for light %s with status %d", u.LightID, resp.StatusCode)
	}
	return nil
}

// rgbToHueSat converts 8-bit RGB to the bridge's native hue (0-65535) and
// saturation (0-254) ranges.
func rgbToHueSat(r, g, b uint8) (hue, sat int) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	delta := max - min

	var h float64
	switch {
	case delta == 0:
		h = 0
	case max == rf:
		h = 60 * math.Mod((gf-bf)/delta, 6)
	case max == gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	var s float64
	if max != 0 {
		s = delta / max
	}

	hue = int(math.Round(h / 360 * 65535))
	sat = int(math.Round(s * 254))
	return hue, sat
}
