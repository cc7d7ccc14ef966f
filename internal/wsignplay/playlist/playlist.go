// Package playlist implements the playlist model rendered by the player
package playlist

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"time"

	"github.com/wrale/wrale-signage-player/api/types/v1alpha1"
)

// DefaultImageDuration applies to image items without a configured duration
const DefaultImageDuration = 10 * time.Second

// MediaType identifies how an item is rendered and advanced
type MediaType string

const (
	// Image items advance on a timer
	Image MediaType = "image"
	// Video items advance when playback ends
	Video MediaType = "video"
)

// Item is an immutable playlist entry. A changed item is a new Item value,
// even when its ID repeats.
type Item struct {
	// ID identifies the item within the playlist
	ID string
	// Type is image or video
	Type MediaType
	// URL is the remote location of the media
	URL string
	// Source is the handle the render surface loads; it is URL when the
	// media could not be cached
	Source string
	// Order is the display order assigned by the backend
	Order int
	// Duration is the configured display time in seconds (images only)
	Duration *int
	// Name is a label for logs and status pages
	Name string
}

// DisplayDuration returns how long an image stays on screen. Videos report
// zero because their natural length governs advancement.
func (i Item) DisplayDuration(fallback time.Duration) time.Duration {
	if i.Type == Video {
		return 0
	}
	if i.Duration == nil || *i.Duration <= 0 {
		return fallback
	}
	return time.Duration(*i.Duration) * time.Second
}

// WithSource returns a copy of the item rendered from source
func (i Item) WithSource(source string) Item {
	i.Source = source
	return i
}

// FromWire converts backend items and sorts them by display order. Items
// sharing an order keep the backend's sequence. Unknown media types are
// rendered as images.
func FromWire(items []v1alpha1.PlaylistItem) []Item {
	out := make([]Item, 0, len(items))
	for _, w := range items {
		t := Image
		if w.Type == v1alpha1.MediaTypeVideo {
			t = Video
		}
		var d *int
		if w.DurationSeconds != nil {
			v := *w.DurationSeconds
			d = &v
		}
		out = append(out, Item{
			ID:       string(w.ItemID),
			Type:     t,
			URL:      w.URL,
			Source:   w.URL,
			Order:    w.DisplayOrder,
			Duration: d,
			Name:     w.Name,
		})
	}
	slices.SortStableFunc(out, func(a, b Item) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// ToWire converts an item back to its API form
func (i Item) ToWire() v1alpha1.PlaylistItem {
	t := v1alpha1.MediaTypeImage
	if i.Type == Video {
		t = v1alpha1.MediaTypeVideo
	}
	return v1alpha1.PlaylistItem{
		ItemID:          v1alpha1.ItemID(i.ID),
		Type:            t,
		URL:             i.URL,
		DisplayOrder:    i.Order,
		DurationSeconds: i.Duration,
		Name:            i.Name,
	}
}

// Snapshot is an ordered playlist plus its fingerprint
type Snapshot struct {
	Items       []Item
	Fingerprint string
}

// NewSnapshot builds a snapshot and computes its fingerprint
func NewSnapshot(items []Item) *Snapshot {
	return &Snapshot{
		Items:       items,
		Fingerprint: Fingerprint(items),
	}
}

// Len returns the number of items, tolerating a nil snapshot
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Items)
}

// Empty reports whether the snapshot has nothing to render
func (s *Snapshot) Empty() bool {
	return s.Len() == 0
}

// Equivalent reports whether two snapshots have the same fingerprint
func (s *Snapshot) Equivalent(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Fingerprint == other.Fingerprint
}

// IDs are length-prefixed; the separators only delimit numeric fields.
const (
	fieldSep  = 0x1f
	recordSep = 0x1e
)

// Fingerprint is an order-sensitive digest over the ID, display order and
// duration of every item. Media URLs and names do not contribute.
func Fingerprint(items []Item) string {
	h := sha256.New()
	buf := make([]byte, 0, 64)
	for _, it := range items {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, int64(len(it.ID)), 10)
		buf = append(buf, ':')
		buf = append(buf, it.ID...)
		buf = append(buf, fieldSep)
		buf = strconv.AppendInt(buf, int64(it.Order), 10)
		buf = append(buf, fieldSep)
		if it.Duration == nil {
			buf = append(buf, '-')
		} else {
			buf = strconv.AppendInt(buf, int64(*it.Duration), 10)
		}
		buf = append(buf, recordSep)
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
