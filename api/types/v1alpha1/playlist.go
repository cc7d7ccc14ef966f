package v1alpha1

import (
	"bytes"
	"encoding/json"
)

// MediaType identifies how an item is rendered and advanced
type MediaType string

const (
	// MediaTypeImage items advance after their configured duration
	MediaTypeImage MediaType = "image"
	// MediaTypeVideo items advance when playback ends
	MediaTypeVideo MediaType = "video"
)

// ItemID identifies a playlist item. Backends send it either as a JSON
// string or as a number; both decode to the same textual form.
type ItemID string

// UnmarshalJSON accepts both string and numeric identifiers
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ItemID(n.String())
	return nil
}

// PlaylistItem is one entry of the playlist assigned to a display
type PlaylistItem struct {
	// ItemID identifies the item within the playlist
	ItemID ItemID `json:"item_id"`
	// Type is image or video
	Type MediaType `json:"type"`
	// URL is where the media can be fetched
	URL string `json:"url"`
	// DisplayOrder is the position assigned by the administrator
	DisplayOrder int `json:"display_order"`
	// DurationSeconds applies to images only
	DurationSeconds *int `json:"duration_seconds,omitempty"`
	// Name is a label for logs and status pages
	Name string `json:"name,omitempty"`
}
