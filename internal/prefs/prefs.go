// Package prefs holds the per-device display preferences: color theme and
// background color. They live outside the synced task document and persist
// in a local key/value store.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

const (
	KeyTheme           = "theme"
	KeyBackgroundColor = "backgroundColor"

	// DefaultBackground is used until the user picks a color.
	DefaultBackground = "#f97316"
)

var (
	ErrUnknownKey   = errors.New("unknown preference")
	ErrInvalidValue = errors.New("invalid preference value")
)

// Theme is the light or dark color scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// Preset is a named background color offered by pickers.
type Preset struct {
	Name  string
	Value string
}

// Presets lists the suggested background colors.
var Presets = []Preset{
	{Name: "orange", Value: "#f97316"},
	{Name: "red", Value: "#dc2626"},
	{Name: "pink", Value: "#ec4899"},
	{Name: "purple", Value: "#a855f7"},
	{Name: "blue", Value: "#3b82f6"},
	{Name: "cyan", Value: "#06b6d4"},
	{Name: "green", Value: "#10b981"},
	{Name: "yellow", Value: "#eab308"},
	{Name: "navy", Value: "#1e40af"},
	{Name: "black", Value: "#1f2937"},
}

// KV persists preference values.
type KV interface {
	// Get returns the stored value and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Prefs is a snapshot of the current preferences.
type Prefs struct {
	Theme           Theme
	BackgroundColor string
}

// Gradient returns the CSS background derived from the background color.
func (p Prefs) Gradient() string {
	darker, err := AdjustBrightness(p.BackgroundColor, -20)
	if err != nil {
		darker = p.BackgroundColor
	}
	return fmt.Sprintf("linear-gradient(135deg, %s 0%%, %s 100%%)", p.BackgroundColor, darker)
}

// Store is the process-wide preference state.
type Store struct {
	kv     KV
	system func() Theme

	mu        sync.RWMutex
	current   Prefs
	observers map[int]func(Prefs)
	nextID    int
}

// New creates a Store over kv. system supplies the theme used when none is
// stored; nil means SystemTheme.
func New(kv KV, system func() Theme) *Store {
	if system == nil {
		system = SystemTheme
	}
	return &Store{
		kv:        kv,
		system:    system,
		current:   Prefs{Theme: ThemeLight, BackgroundColor: DefaultBackground},
		observers: make(map[int]func(Prefs)),
	}
}

// Init loads stored values. Missing or malformed entries fall back to the
// system theme and DefaultBackground.
func (s *Store) Init(ctx context.Context) error {
	theme, ok, err := s.kv.Get(ctx, KeyTheme)
	if err != nil {
		return fmt.Errorf("load theme: %w", err)
	}
	loaded := Prefs{Theme: Theme(theme), BackgroundColor: DefaultBackground}
	if !ok || !loaded.Theme.Valid() {
		loaded.Theme = s.system()
	}

	bg, ok, err := s.kv.Get(ctx, KeyBackgroundColor)
	if err != nil {
		return fmt.Errorf("load background color: %w", err)
	}
	if ok {
		if normalized, err := normalizeColor(bg); err == nil {
			loaded.BackgroundColor = normalized
		}
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return nil
}

func (s *Store) Get() Prefs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) Theme() Theme { return s.Get().Theme }

func (s *Store) BackgroundColor() string { return s.Get().BackgroundColor }

func (s *Store) Gradient() string { return s.Get().Gradient() }

// Set validates, persists and publishes one preference.
func (s *Store) Set(ctx context.Context, key, value string) error {
	value = strings.TrimSpace(value)

	s.mu.RLock()
	next := s.current
	s.mu.RUnlock()

	switch key {
	case KeyTheme:
		theme := Theme(strings.ToLower(value))
		if !theme.Valid() {
			return fmt.Errorf("%w: theme %q", ErrInvalidValue, value)
		}
		next.Theme, value = theme, string(theme)
	case KeyBackgroundColor:
		color, err := normalizeColor(value)
		if err != nil {
			return err
		}
		next.BackgroundColor, value = color, color
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	if err := s.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	s.mu.Lock()
	switch key {
	case KeyTheme:
		s.current.Theme = next.Theme
	case KeyBackgroundColor:
		s.current.BackgroundColor = next.BackgroundColor
	}
	snapshot := s.current
	observers := make([]func(Prefs), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
	return nil
}

// Observe registers fn for every change. The returned func unregisters it.
func (s *Store) Observe(fn func(Prefs)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func normalizeColor(value string) (string, error) {
	if !hexColor.MatchString(value) {
		return "", fmt.Errorf("%w: color %q must look like #rrggbb", ErrInvalidValue, value)
	}
	return strings.ToLower(value), nil
}

// AdjustBrightness adds delta to each RGB channel of a #rrggbb color,
// clamping to 0..255.
func AdjustBrightness(hex string, delta int) (string, error) {
	if _, err := normalizeColor(hex); err != nil {
		return "", err
	}
	n, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	channel := func(shift uint) uint64 {
		v := int((n>>shift)&0xff) + delta
		return uint64(max(0, min(255, v)))
	}
	return fmt.Sprintf("#%02x%02x%02x", channel(16), channel(8), channel(0)), nil
}

// SystemTheme guesses the terminal's scheme from COLORFGBG ("fg;bg"),
// defaulting to light.
func SystemTheme() Theme {
	value := os.Getenv("COLORFGBG")
	if value == "" {
		return ThemeLight
	}
	fields := strings.Split(value, ";")
	bg, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return ThemeLight
	}
	if bg <= 6 || bg == 8 {
		return ThemeDark
	}
	return ThemeLight
}
