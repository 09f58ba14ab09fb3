package render

import (
	"sync"
	"time"

	"github.com/autolink/autolink/internal/patterns"
	"github.com/autolink/autolink/internal/scanner"
	"github.com/lucasb-eyer/go-colorful"
)

// ActivateFunc is called with the category and matched text of an activated
// region.
type ActivateFunc func(category patterns.Category, matched string)

type Options struct {
	Palette            *Palette
	LinkColor          *colorful.Color
	SelectedColor      *colorful.Color
	TransitionDuration time.Duration
	OnActivate         ActivateFunc
}

// Region is a clickable span built from one item. Styled is set when the
// region carries its own foreground color.
type Region struct {
	Index  int
	Item   scanner.Item
	Color  colorful.Color
	Styled bool
}

// Document binds scanned text to its regions. Regions keep item order, so a
// later region wins wherever ranges overlap.
type Document struct {
	Text string

	regions    []Region
	onActivate ActivateFunc
	selected   colorful.Color
	duration   time.Duration

	mu          sync.Mutex
	transitions map[int]Transition
}

func NewDocument(text string, items []scanner.Item, opts Options) *Document {
	link := DefaultLinkColor
	if opts.LinkColor != nil {
		link = *opts.LinkColor
	}
	selected := DefaultSelectedColor
	if opts.SelectedColor != nil {
		selected = *opts.SelectedColor
	}
	duration := opts.TransitionDuration
	if duration == 0 {
		duration = DefaultTransitionDuration
	}

	styled := opts.Palette.Configured()
	regions := make([]Region, 0, len(items))
	for i, item := range items {
		c, ok := opts.Palette.Lookup(item.Category)
		if !ok {
			c = link
		}
		regions = append(regions, Region{Index: i, Item: item, Color: c, Styled: styled})
	}

	return &Document{
		Text:        text,
		regions:     regions,
		onActivate:  opts.OnActivate,
		selected:    selected,
		duration:    duration,
		transitions: make(map[int]Transition),
	}
}

func (d *Document) Regions() []Region {
	out := make([]Region, len(d.regions))
	copy(out, d.regions)
	return out
}

// RegionAt returns the last registered region covering offset.
func (d *Document) RegionAt(offset int) (Region, bool) {
	for i := len(d.regions) - 1; i >= 0; i-- {
		r := d.regions[i]
		if offset >= r.Item.Start && offset < r.Item.End {
			return r, true
		}
	}
	return Region{}, false
}

// Activate dispatches the region at offset to the callback and starts its
// color transition.
func (d *Document) Activate(offset int, now time.Time) (Region, bool) {
	r, ok := d.RegionAt(offset)
	if !ok {
		return Region{}, false
	}
	if d.onActivate != nil {
		d.onActivate(r.Item.Category, r.Item.Text)
	}

	d.mu.Lock()
	d.transitions[r.Index] = Transition{
		From:     d.selected,
		To:       r.Color,
		Start:    now,
		Duration: d.duration,
	}
	d.mu.Unlock()

	return r, true
}

// ColorAt returns the displayed color of region index at now. Finished
// transitions are dropped.
func (d *Document) ColorAt(index int, now time.Time) (colorful.Color, bool) {
	if index < 0 || index >= len(d.regions) {
		return colorful.Color{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.transitions[index]; ok {
		c, done := t.At(now)
		if done {
			delete(d.transitions, index)
		}
		return c, true
	}
	return d.regions[index].Color, true
}

// Animating reports whether any transition is still running at now.
func (d *Document) Animating(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range d.transitions {
		if _, done := t.At(now); !done {
			return true
		}
	}
	return false
}
