package scenarios

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/roadside/core/model"
)

//go:embed bundled/*.yaml
var bundled embed.FS

// Request describes one help request opened by a create step.
type Request struct {
	Requester string           `yaml:"requester"`
	Type      string           `yaml:"type"`
	Location  model.Coordinate `yaml:"location"`
}

// Step performs at most one action and then checks Expect. Error, when set,
// must be a substring of the action's error.
type Step struct {
	Create  *Request      `yaml:"create,omitempty"`
	Advance time.Duration `yaml:"advance,omitempty"`
	Quote   float64       `yaml:"quote,omitempty"`
	Accept  bool          `yaml:"accept,omitempty"`
	Decline bool          `yaml:"decline,omitempty"`
	Cancel  bool          `yaml:"cancel,omitempty"`
	Error   string        `yaml:"error,omitempty"`
	Expect  *Expect       `yaml:"expect,omitempty"`
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{s.Create != nil, s.Advance != 0, s.Quote != 0, s.Accept, s.Decline, s.Cancel} {
		if set {
			n++
		}
	}
	return n
}

// Expect is checked against the current request. Unset fields are ignored.
type Expect struct {
	Status      string         `yaml:"status,omitempty"`
	Technician  string         `yaml:"technician,omitempty"`
	Quote       *float64       `yaml:"quote,omitempty"`
	Reason      string         `yaml:"reason,omitempty"`
	Blacklisted []string       `yaml:"blacklisted,omitempty"`
	Active      *bool          `yaml:"active,omitempty"`
	Events      map[string]int `yaml:"events,omitempty"`
}

type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description,omitempty"`
	Technicians []model.Technician `yaml:"technicians"`
	// Draws are replayed in order, cycling, by every random decision.
	Draws      []float64 `yaml:"draws"`
	ETASeconds int       `yaml:"eta_seconds,omitempty"`
	Steps      []Step    `yaml:"steps"`
}

// Validate checks that every step holds at most one action.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return errors.New("scenario name is required")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %s: no steps", sc.Name)
	}
	for i, st := range sc.Steps {
		if st.actions() > 1 {
			return fmt.Errorf("scenario %s: step %d has more than one action", sc.Name, i+1)
		}
		if st.Advance < 0 {
			return fmt.Errorf("scenario %s: step %d advances backwards", sc.Name, i+1)
		}
	}
	return nil
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Bundled returns the scenarios shipped with the binary, sorted by file name.
func Bundled() ([]*Scenario, error) {
	names, err := fs.Glob(bundled, "bundled/*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	out := make([]*Scenario, 0, len(names))
	for _, n := range names {
		data, err := bundled.ReadFile(n)
		if err != nil {
			return nil, err
		}
		sc, err := parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path.Base(n), err)
		}
		out = append(out, sc)
	}
	return out, nil
}
