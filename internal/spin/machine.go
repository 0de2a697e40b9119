package spin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/reel"
)

// State of the machine between steps.
type State string

const (
	Idle     State = "idle"
	Spinning State = "spinning"
	Finished State = "finished"
)

// User-visible status lines.
const (
	StatusReady        = "Status: Ready"
	StatusRunning      = "Status: Running"
	StatusFinished     = "Status: Finished"
	StatusInvalidCount = "Invalid input. Defaulting to 1 result."
	StatusFailed       = "Status: Failed"
)

// ErrBusy is returned for manual rotation while a spin is in progress.
var ErrBusy = errors.New("grid is spinning")

// Config fixes the grid shape and the spin template.
type Config struct {
	Dimensions reel.Dimensions `json:"dimensions" yaml:"dimensions"`
	Plan       Plan            `json:"plan" yaml:"plan"`
	MaxSteps   int             `json:"max_steps" yaml:"max_steps"`
}

// DefaultConfig is the 5x50 grid with the default plan and 1..7 step ticks.
func DefaultConfig() Config {
	return Config{
		Dimensions: reel.DefaultDimensions(),
		Plan:       DefaultPlan(),
		MaxSteps:   reel.DefaultMaxSteps,
	}
}

func (c Config) Validate() error {
	if err := c.Dimensions.Validate(); err != nil {
		return err
	}
	if len(c.Plan) == 0 {
		return errors.New("spin plan has no phases")
	}
	for i, ph := range c.Plan {
		if ph.Count < 0 || ph.Delay < 0 {
			return fmt.Errorf("phase %d: negative count or delay", i)
		}
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("max steps must be at least 1, got %d", c.MaxSteps)
	}
	return nil
}

// Result is the highlight column sampled when a plan completes. Index counts
// results within one start.
type Result struct {
	Index      int       `json:"index"`
	Nonce      uint64    `json:"nonce"`
	Values     []int     `json:"values"`
	RecordedAt time.Time `json:"recorded_at"`
}

// String renders the result the way the result log shows it.
func (r Result) String() string {
	parts := make([]string, len(r.Values))
	for i, v := range r.Values {
		parts[i] = strconv.Itoa(v)
	}
	return fmt.Sprintf("Result %d: %s", r.Index, strings.Join(parts, ", "))
}

// Step is the single event produced by Machine.Step.
type Step struct {
	// Ticked is set when every row was rotated and adjusted. The next step is
	// due after Delay.
	Ticked bool
	Delay  time.Duration
	// Result is set when a plan completed. Done additionally marks the last
	// requested result.
	Result *Result
	Done   bool
	// Idle means the machine was not spinning and nothing happened.
	Idle bool
}

// Snapshot is a read-only view of the machine.
type Snapshot struct {
	State          State    `json:"state"`
	Status         string   `json:"status"`
	Phase          int      `json:"phase"`
	Remaining      int      `json:"remaining"`
	Tick           int      `json:"tick"`
	Rows           [][]int  `json:"rows"`
	Highlight      []int    `json:"highlight"`
	HighlightIndex int      `json:"highlight_index"`
	Results        []Result `json:"results"`
	Generated      int      `json:"generated"`
	Requested      int      `json:"requested"`
	Progress       float64  `json:"progress"`
	ServerSeedHash string   `json:"server_seed_hash"`
	ClientSeed     string   `json:"client_seed"`
	Nonce          uint64   `json:"nonce"`
}

// Machine is the spin state machine. It owns its grid and result log and is
// not safe for concurrent use; see Runner.
//
// Nonce 0 seeds the initial grid. Every plan and every refresh draws from the
// next nonce, so a run can be replayed from the seeds alone.
type Machine struct {
	cfg   Config
	seeds engine.Seeds
	nonce uint64

	grid   *reel.Grid
	stream *engine.Stream

	state     State
	status    string
	plan      Plan
	phase     int
	tick      int
	requested int
	generated int
	results   []Result

	now func() time.Time
}

// NewMachine builds an idle machine with a grid drawn from nonce 0.
func NewMachine(cfg Config, seeds engine.Seeds) (*Machine, error) {
	return newMachineAt(cfg, seeds, 0)
}

// newMachineAt builds the machine as it stands right after a refresh that
// drew its grid from nonce.
func newMachineAt(cfg Config, seeds engine.Seeds, nonce uint64) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid spin config: %w", err)
	}
	grid, err := reel.NewGrid(cfg.Dimensions, engine.NewStream(seeds, nonce))
	if err != nil {
		return nil, err
	}
	return &Machine{
		cfg:    cfg,
		seeds:  seeds,
		nonce:  nonce,
		grid:   grid,
		state:  Idle,
		status: StatusReady,
		now:    time.Now,
	}, nil
}

// Start parses the requested count and begins spinning. Invalid input runs a
// single plan and returns StatusInvalidCount. The result log is kept across
// starts; only the run's own counter restarts. Starting while a spin is in
// progress abandons the current plan.
func (m *Machine) Start(raw string) string {
	n, err := ParseRequestedCount(raw)
	return m.begin(n, err)
}

// StartCount is Start for callers that already hold a number.
func (m *Machine) StartCount(n int) string {
	var err error
	if n <= 0 {
		err = fmt.Errorf("%w: %d", ErrInvalidCount, n)
		n = 1
	}
	return m.begin(n, err)
}

func (m *Machine) begin(n int, err error) string {
	m.status = StatusRunning
	if err != nil {
		m.status = StatusInvalidCount
	}
	m.requested = n
	m.generated = 0
	m.state = Spinning
	m.openPlan()
	return m.status
}

func (m *Machine) openPlan() {
	m.nonce++
	m.stream = engine.NewStream(m.seeds, m.nonce)
	m.plan = m.cfg.Plan.Clone()
	m.phase = 0
	m.tick = 0
	m.skipExhausted()
}

// skipExhausted moves past phases with no ticks left, so snapshots never
// report an empty phase.
func (m *Machine) skipExhausted() {
	for m.phase < len(m.plan) && m.plan[m.phase].Count <= 0 {
		m.phase++
	}
}

// Step advances the machine by one event. Exhausted phases are skipped
// without a delay.
func (m *Machine) Step() (Step, error) {
	if m.state != Spinning {
		return Step{Idle: true}, nil
	}

	if m.phase < len(m.plan) {
		ph := &m.plan[m.phase]
		ins := reel.NextInstructions(m.stream, m.cfg.Dimensions.Rows, m.cfg.MaxSteps)
		if err := m.grid.Apply(ins); err != nil {
			m.state = Idle
			m.status = StatusFailed
			return Step{}, fmt.Errorf("tick %d at nonce %d: %w", m.tick, m.nonce, err)
		}
		ph.Count--
		m.tick++
		delay := ph.Delay
		m.skipExhausted()
		return Step{Ticked: true, Delay: delay}, nil
	}

	r := Result{
		Index:      m.generated,
		Nonce:      m.nonce,
		Values:     m.grid.Highlight(),
		RecordedAt: m.now(),
	}
	m.results = append(m.results, r)
	m.generated++

	st := Step{Result: &r}
	if m.generated < m.requested {
		m.openPlan()
	} else {
		m.state = Finished
		m.status = StatusFinished
		st.Done = true
	}
	return st, nil
}

// Refresh replaces the grid with fresh permutations from the next nonce and
// clears the result log. An active spin is abandoned.
func (m *Machine) Refresh() error {
	grid, err := reel.NewGrid(m.cfg.Dimensions, engine.NewStream(m.seeds, m.nonce+1))
	if err != nil {
		return err
	}
	m.nonce++
	m.grid = grid
	m.stream = nil
	m.results = nil
	m.requested = 0
	m.generated = 0
	m.plan = nil
	m.phase = 0
	m.tick = 0
	m.state = Idle
	m.status = StatusReady
	return nil
}

// RotateRow is a manual drag. It bypasses the uniqueness pass.
func (m *Machine) RotateRow(row, steps int, dir reel.Direction) error {
	if m.state == Spinning {
		return ErrBusy
	}
	return m.grid.RotateRow(row, steps, dir)
}

// Progress is generated/requested in [0, 1]; 0 before any start.
func (m *Machine) Progress() float64 {
	if m.requested == 0 {
		return 0
	}
	p := float64(m.generated) / float64(m.requested)
	if p > 1 {
		p = 1
	}
	return p
}

func (m *Machine) State() State { return m.state }
func (m *Machine) Status() string { return m.status }
func (m *Machine) Nonce() uint64 { return m.nonce }
func (m *Machine) Seeds() engine.Seeds { return m.seeds }
func (m *Machine) Config() Config { return m.cfg }
func (m *Machine) Requested() int { return m.requested }
func (m *Machine) Generated() int { return m.generated }
func (m *Machine) Grid() *reel.Grid { return m.grid.Clone() }
func (m *Machine) Results() []Result { return append([]Result(nil), m.results...) }

// Snapshot copies everything a display needs.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		State:          m.state,
		Status:         m.status,
		Phase:          m.phase,
		Tick:           m.tick,
		Rows:           m.grid.Visible(),
		Highlight:      m.grid.Highlight(),
		HighlightIndex: m.cfg.Dimensions.Highlight,
		Results:        m.Results(),
		Generated:      m.generated,
		Requested:      m.requested,
		Progress:       m.Progress(),
		ServerSeedHash: engine.HashServerSeed(m.seeds.Server),
		ClientSeed:     m.seeds.Client,
		Nonce:          m.nonce,
	}
	if m.phase < len(m.plan) {
		s.Remaining = m.plan[m.phase].Count
	}
	return s
}
