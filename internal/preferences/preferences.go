// Package preferences holds the user's acceptance criteria and the store
// that hands out one read-only snapshot per processing pass.
package preferences

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Scoring constants used by Defaults.
const (
	DefaultCategoryBonus = 10.0
	DefaultUrgencyBonus  = 15.0
	DefaultHomeBaseBonus = 20.0

	// DefaultDailyCap applies to any weekday missing from DailyCaps.
	DefaultDailyCap = 2
)

// Preferences is one snapshot of the user's acceptance criteria.
// DailyCaps is keyed by time.Weekday (0 = Sunday).
type Preferences struct {
	CategoryWeights              map[string]float64 `yaml:"category_weights" json:"categoryWeights"`
	MinHourlyRate                float64            `yaml:"min_hourly_rate" json:"minHourlyRate"`
	PreferUrgent                 bool               `yaml:"prefer_urgent" json:"preferUrgent"`
	UrgencyBonus                 float64            `yaml:"urgency_bonus" json:"urgencyBonus"`
	PreferHomeBase               bool               `yaml:"prefer_home_base" json:"preferHomeBase"`
	HomeBaseBonus                float64            `yaml:"home_base_bonus" json:"homeBaseBonus"`
	MaxDistanceWithoutPermission float64            `yaml:"max_distance_without_permission" json:"maxDistanceWithoutPermission"`
	DailyCaps                    map[int]int        `yaml:"daily_caps" json:"dailyCaps"`
	TravelBufferMinutes          int                `yaml:"travel_buffer_minutes" json:"travelBufferMinutes"`
	JobDurationMinutes           int                `yaml:"job_duration_minutes" json:"jobDurationMinutes"`
}

// Defaults returns the built-in criteria. Every call returns fresh maps.
func Defaults() Preferences {
	return Preferences{
		CategoryWeights: map[string]float64{
			"assembly":   DefaultCategoryBonus,
			"electrical": DefaultCategoryBonus,
			"network":    DefaultCategoryBonus,
		},
		MinHourlyRate:                79,
		PreferUrgent:                 true,
		UrgencyBonus:                 DefaultUrgencyBonus,
		PreferHomeBase:               true,
		HomeBaseBonus:                DefaultHomeBaseBonus,
		MaxDistanceWithoutPermission: 20,
		DailyCaps: map[int]int{
			int(time.Sunday):    3,
			int(time.Monday):    5,
			int(time.Tuesday):   2,
			int(time.Wednesday): 5,
			int(time.Thursday):  2,
			int(time.Friday):    2,
			int(time.Saturday):  3,
		},
		TravelBufferMinutes: 60,
		JobDurationMinutes:  120,
	}
}

// CapFor returns the acceptance cap for a weekday.
func (p Preferences) CapFor(day time.Weekday) int {
	if v, ok := p.DailyCaps[int(day)]; ok {
		return v
	}
	return DefaultDailyCap
}

// CategoryBonus returns the weight for a category, 0 when not preferred.
func (p Preferences) CategoryBonus(name string) float64 {
	w := p.CategoryWeights[strings.ToLower(name)]
	if w <= 0 {
		return 0
	}
	return w
}

// TravelBuffer is the gap kept free after each job.
func (p Preferences) TravelBuffer() time.Duration {
	return time.Duration(p.TravelBufferMinutes) * time.Minute
}

// JobDuration is the fixed duration policy.
func (p Preferences) JobDuration() time.Duration {
	return time.Duration(p.JobDurationMinutes) * time.Minute
}

// Validate checks the snapshot for values the engine cannot work with.
func (p Preferences) Validate() error {
	var errs []error
	if p.MinHourlyRate < 0 {
		errs = append(errs, fmt.Errorf("min_hourly_rate must be >= 0, got %v", p.MinHourlyRate))
	}
	if p.MaxDistanceWithoutPermission < 0 {
		errs = append(errs, fmt.Errorf("max_distance_without_permission must be >= 0, got %v", p.MaxDistanceWithoutPermission))
	}
	if p.TravelBufferMinutes < 0 {
		errs = append(errs, fmt.Errorf("travel_buffer_minutes must be >= 0, got %d", p.TravelBufferMinutes))
	}
	if p.JobDurationMinutes <= 0 {
		errs = append(errs, fmt.Errorf("job_duration_minutes must be > 0, got %d", p.JobDurationMinutes))
	}
	days := make([]int, 0, len(p.DailyCaps))
	for day := range p.DailyCaps {
		days = append(days, day)
	}
	sort.Ints(days)
	for _, day := range days {
		if day < 0 || day > 6 {
			errs = append(errs, fmt.Errorf("daily_caps: weekday %d out of range 0-6", day))
		} else if p.DailyCaps[day] < 0 {
			errs = append(errs, fmt.Errorf("daily_caps[%d] must be >= 0, got %d", day, p.DailyCaps[day]))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	out := p
	out.CategoryWeights = make(map[string]float64, len(p.CategoryWeights))
	for k, v := range p.CategoryWeights {
		out.CategoryWeights[k] = v
	}
	out.DailyCaps = make(map[int]int, len(p.DailyCaps))
	for k, v := range p.DailyCaps {
		out.DailyCaps[k] = v
	}
	return out
}

// Parse decodes YAML on top of Defaults. Scalar keys absent from data keep
// their default. A map present in data replaces the default map whole, so a
// weekday missing from daily_caps gets DefaultDailyCap. Category names are
// lower-cased.
func Parse(data []byte) (Preferences, error) {
	def := Defaults()
	p := def
	p.CategoryWeights = nil
	p.DailyCaps = nil
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("preferences: decode yaml: %w", err)
	}
	if p.CategoryWeights == nil {
		p.CategoryWeights = def.CategoryWeights
	}
	if p.DailyCaps == nil {
		p.DailyCaps = def.DailyCaps
	}
	weights := make(map[string]float64, len(p.CategoryWeights))
	for k, v := range p.CategoryWeights {
		weights[strings.ToLower(strings.TrimSpace(k))] = v
	}
	p.CategoryWeights = weights
	if err := p.Validate(); err != nil {
		return Preferences{}, fmt.Errorf("preferences: %w", err)
	}
	return p, nil
}

// Load reads and parses the YAML file at path. A missing file yields
// Defaults with found=false.
func Load(path string) (p Preferences, found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), false, nil
	}
	if err != nil {
		return Preferences{}, false, fmt.Errorf("preferences: read %s: %w", path, err)
	}
	p, err = Parse(data)
	if err != nil {
		return Preferences{}, true, err
	}
	return p, true, nil
}

// Store serves snapshots of the current preferences. Reload swaps the
// whole value; a snapshot taken before a reload is never affected by it.
type Store struct {
	path string
	log  zerolog.Logger

	mu      sync.RWMutex
	current Preferences
}

// NewStore loads path once. A missing file is not an error: defaults are
// used and a warning is logged, as later reloads may pick the file up.
func NewStore(path string, log zerolog.Logger) (*Store, error) {
	s := &Store{path: path, log: log, current: Defaults()}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore returns a store that always serves p. Reload is a no-op.
func NewStaticStore(p Preferences) *Store {
	return &Store{current: p.Clone(), log: zerolog.Nop()}
}

// Snapshot returns a deep copy of the current preferences.
func (s *Store) Snapshot() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Reload re-reads the file. On error the previous snapshot stays active.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	p, found, err := Load(s.path)
	if err != nil {
		return err
	}
	if !found {
		s.log.Warn().Str("path", s.path).Msg("preferences file not found, using defaults")
	}
	s.mu.Lock()
	s.current = p
	s.mu.Unlock()
	return nil
}
