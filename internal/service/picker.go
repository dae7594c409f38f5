package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sakif/dog-adoption/internal/apperror"
	"github.com/sakif/dog-adoption/internal/model"
)

// PickerState is a snapshot of the location picker.
type PickerState struct {
	Text        string           `json:"text"`
	Loading     bool             `json:"loading"`
	Options     []model.Location `json:"options"`
	ManualEntry *model.Location  `json:"manualEntry,omitempty"`
	Selected    []model.Location `json:"selected"`
	Seq         uint64           `json:"seq"`
}

// LocationPicker is the autocomplete behind the location filter.
//
// Input is debounced: each keystroke restarts a timer and only the text
// that survives the delay is resolved. Every keystroke also bumps seq, and
// a resolution whose seq is no longer current is discarded, so a slow
// response for "san" can never overwrite the options for "san antonio".
type LocationPicker struct {
	ctx      context.Context
	resolver *LocationResolver
	delay    time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	text     string
	seq      uint64
	loading  bool
	options  []model.Location
	manual   *model.Location
	selected []model.Location
	timer    *time.Timer
	warmed   bool
}

// NewLocationPicker creates a picker. ctx bounds the background
// resolutions started by Input; cancel it to stop them.
func NewLocationPicker(ctx context.Context, resolver *LocationResolver, delay time.Duration, logger *slog.Logger) *LocationPicker {
	return &LocationPicker{
		ctx:      ctx,
		resolver: resolver,
		delay:    delay,
		logger:   logger,
		options:  []model.Location{},
		selected: []model.Location{},
	}
}

// Input records new text and schedules its resolution. Text shorter than
// two characters cancels any pending resolution and leaves options as they are.
func (p *LocationPicker) Input(text string) PickerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	p.text = text
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < minResolveLength {
		p.loading = false
		p.manual = nil
		return p.snapshotLocked()
	}

	seq := p.seq
	p.loading = true
	p.timer = time.AfterFunc(p.delay, func() { p.resolve(seq, text) })
	return p.snapshotLocked()
}

func (p *LocationPicker) resolve(seq uint64, text string) {
	p.mu.Lock()
	if seq != p.seq {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	res := p.resolver.Resolve(p.ctx, text)

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.seq {
		p.logger.Debug("discarding stale location results", slog.String("text", text))
		return
	}
	p.options = res.Options
	p.manual = res.ManualEntry
	p.loading = false
}

// Open is called when the picker is shown. The first time it opens with
// no options and nothing typed it loads the warm-up set.
func (p *LocationPicker) Open(ctx context.Context) PickerState {
	p.mu.Lock()
	if p.warmed || len(p.options) > 0 || strings.TrimSpace(p.text) != "" {
		st := p.snapshotLocked()
		p.mu.Unlock()
		return st
	}
	seq := p.seq
	p.loading = true
	p.mu.Unlock()

	locs := p.resolver.Warmup(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.warmed = true
	if seq == p.seq && len(p.options) == 0 {
		p.options = locs
		p.loading = false
	}
	return p.snapshotLocked()
}

// Select adds loc to the selection; a second entry for the same
// (city, state) is ignored.
func (p *LocationPicker) Select(loc model.Location) PickerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.selected {
		if s.Key() == loc.Key() {
			return p.snapshotLocked()
		}
	}
	p.selected = append(p.selected, loc)
	return p.snapshotLocked()
}

// Deselect removes the selected location with the given key.
func (p *LocationPicker) Deselect(key string) PickerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.selected[:0]
	for _, s := range p.selected {
		if s.Key() != key {
			kept = append(kept, s)
		}
	}
	p.selected = kept
	return p.snapshotLocked()
}

// AddManualEntry selects the current manual entry and clears the input.
func (p *LocationPicker) AddManualEntry() (PickerState, error) {
	p.mu.Lock()
	manual := p.manual
	p.mu.Unlock()

	if manual == nil {
		return p.Snapshot(), apperror.PreconditionFailed("Type at least three characters to add a custom location")
	}

	p.Select(*manual)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.manual = nil
	p.text = ""
	p.seq++
	return p.snapshotLocked(), nil
}

// Selected returns a copy of the selected locations.
func (p *LocationPicker) Selected() []model.Location {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Location{}, p.selected...)
}

// Clear drops the selection and any pending input.
func (p *LocationPicker) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.text = ""
	p.loading = false
	p.manual = nil
	p.selected = []model.Location{}
}

func (p *LocationPicker) Snapshot() PickerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *LocationPicker) snapshotLocked() PickerState {
	st := PickerState{
		Text:     p.text,
		Loading:  p.loading,
		Options:  append([]model.Location{}, p.options...),
		Selected: append([]model.Location{}, p.selected...),
		Seq:      p.seq,
	}
	if p.manual != nil {
		m := *p.manual
		st.ManualEntry = &m
	}
	return st
}
