package scheduling

import (
	"sort"
	"sync"

	"github.com/wolfman30/meditrack/internal/records"
	"github.com/wolfman30/meditrack/pkg/logging"
)

const (
	defaultMaxSuggestions     = 5
	defaultMinTrainingSamples = 10
	slotTimeLayout            = "2006-01-02T15:04:05"
	slotDisplayLayout         = "15:04"
)

// Slot is one suggested appointment time.
type Slot struct {
	Time        string  `json:"time"`
	TimeDisplay string  `json:"time_display"`
	Score       float64 `json:"score"`
	Reason      string  `json:"reason"`
}

// TrainResult reports the outcome of a Train call.
type TrainResult struct {
	Trained bool `json:"trained"`
	Samples int  `json:"samples"`
}

// Option configures a Suggester.
type Option func(*Suggester)

// WithGrid overrides the default 09:00 to 17:00 / 30 minute grid.
func WithGrid(cfg GridConfig) Option {
	return func(s *Suggester) { s.grid = NewGrid(cfg) }
}

// WithMaxSuggestions caps the number of slots returned.
func WithMaxSuggestions(n int) Option {
	return func(s *Suggester) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithMinTrainingSamples sets how many dated records Train needs.
func WithMinTrainingSamples(n int) Option {
	return func(s *Suggester) {
		if n > 0 {
			s.minSamples = n
		}
	}
}

// WithoutLearning disables the learned strategy. Train becomes a no-op.
func WithoutLearning() Option {
	return func(s *Suggester) { s.learning = false }
}

// WithLogger sets the logger used for training outcomes.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Suggester) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Suggester ranks free slots for a doctor's day. It starts untrained and
// scores with HeuristicStrategy until a successful Train call.
type Suggester struct {
	grid           *Grid
	heuristic      Strategy
	maxSuggestions int
	minSamples     int
	learning       bool
	forest         forestParams
	logger         *logging.Logger

	mu      sync.RWMutex
	learned Strategy
}

// NewSuggester builds an untrained suggester.
func NewSuggester(opts ...Option) *Suggester {
	s := &Suggester{
		grid:           NewGrid(DefaultGridConfig()),
		heuristic:      HeuristicStrategy{},
		maxSuggestions: defaultMaxSuggestions,
		minSamples:     defaultMinTrainingSamples,
		learning:       true,
		forest:         defaultForestParams(),
		logger:         logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grid exposes the slot grid, for callers that only need free times.
func (s *Suggester) Grid() *Grid {
	return s.grid
}

// Trained reports whether a learned model is in use.
func (s *Suggester) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.learned != nil
}

// Train fits the learned strategy on history. With fewer dated records than
// the configured minimum it leaves the current state untouched.
func (s *Suggester) Train(history []records.Appointment) TrainResult {
	if !s.learning {
		return TrainResult{}
	}

	x, y := trainingSet(history)
	if len(x) < s.minSamples {
		s.logger.Debug("slot model training skipped", "samples", len(x), "required", s.minSamples)
		return TrainResult{Trained: false, Samples: len(x)}
	}

	strategy := &ForestStrategy{scaler: fitScaler(x)}
	scaled := make([][]float64, len(x))
	for i, row := range x {
		scaled[i] = strategy.scaler.transform(row)
	}
	strategy.forest = fitForest(scaled, y, s.forest)

	s.mu.Lock()
	s.learned = strategy
	s.mu.Unlock()

	s.logger.Info("slot model trained", "samples", len(x), "trees", len(strategy.forest.trees))
	return TrainResult{Trained: true, Samples: len(x)}
}

// trainingSet labels each dated record with how often its doctor has been
// booked at the same weekday and hour.
func trainingSet(history []records.Appointment) ([][]float64, []float64) {
	type bucket struct {
		doctor, weekday, hour int
	}
	counts := make(map[bucket]int)
	features := make([]Features, 0, len(history))
	for _, appt := range history {
		ts := appt.When()
		if !ts.Valid {
			continue
		}
		f := FeaturesFor(ts.Time, appt.DoctorID, max(appt.PatientHistoryCount, 0))
		counts[bucket{f.DoctorID, f.Weekday, f.Hour}]++
		features = append(features, f)
	}

	x := make([][]float64, len(features))
	y := make([]float64, len(features))
	for i, f := range features {
		x[i] = f.Vector()
		y[i] = float64(counts[bucket{f.DoctorID, f.Weekday, f.Hour}])
	}
	return x, y
}

// Suggest returns up to the configured number of free slots on date, best
// first. Unreadable dates or a fully booked day give an empty slice.
func (s *Suggester) Suggest(doctorID int, date string, occupied Occupied, history []records.Appointment) []Slot {
	ts := records.ParseTime(date)
	if !ts.Valid {
		return []Slot{}
	}

	free := s.grid.Free(ts.Time, occupied)
	if len(free) == 0 {
		return []Slot{}
	}

	strategy := s.strategyFor(history)
	slots := make([]Slot, len(free))
	for i, t := range free {
		slots[i] = Slot{
			Time:        t.Format(slotTimeLayout),
			TimeDisplay: t.Format(slotDisplayLayout),
			Score:       strategy.Score(FeaturesFor(t, doctorID, 0)),
			Reason:      strategy.Name(),
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Score > slots[j].Score
	})
	if len(slots) > s.maxSuggestions {
		slots = slots[:s.maxSuggestions]
	}
	return slots
}

func (s *Suggester) strategyFor(history []records.Appointment) Strategy {
	if len(history) == 0 {
		return s.heuristic
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.learned != nil {
		return s.learned
	}
	return s.heuristic
}
