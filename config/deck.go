// Package config holds the fully populated parameter record the core
// receives from the input-deck scripting host (out of scope here, see
// spec.md S1/S6). DeckParams.Parse and .Print follow the same shape as
// gocfd's InputParameters2D: a YAML-tagged struct with a thin Parse/Print
// pair.
package config

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
)

// Geometry selects the field/particle dimensionality pairing (spec.md S3).
type Geometry string

const (
	Geometry1D3V Geometry = "1d3v"
	Geometry2D3V Geometry = "2d3v"
	Geometry3D3V Geometry = "3d3v"
	Geometry3DRZ Geometry = "3drz"
)

// NDimField returns nDim_field for the geometry.
func (g Geometry) NDimField() int {
	switch g {
	case Geometry1D3V:
		return 1
	case Geometry2D3V, Geometry3DRZ:
		return 2
	case Geometry3D3V:
		return 3
	default:
		return 0
	}
}

// NDimParticle returns nDim_particle, which differs from NDimField only
// in axisymmetric mode (spec.md S3).
func (g Geometry) NDimParticle() int {
	if g == Geometry3DRZ {
		return 3
	}
	return g.NDimField()
}

func (g Geometry) Axisymmetric() bool { return g == Geometry3DRZ }

// BCFace is one of the two sides of an axis.
type BCFace int

const (
	FaceMin BCFace = iota
	FaceMax
)

// EMBoundary is the EM-field boundary family for one (axis, face).
type EMBoundary string

const (
	EMPeriodic  EMBoundary = "periodic"
	EMSilverMuller EMBoundary = "silver-muller"
	EMReflective   EMBoundary = "reflective"
	EMPML          EMBoundary = "pml"
)

// ParticlePolicy is one of the exactly-enumerated particle boundary
// policies of spec.md S4.2.
type ParticlePolicy string

const (
	PolicyReflective ParticlePolicy = "reflective"
	PolicyRemove     ParticlePolicy = "remove"
	PolicyStop       ParticlePolicy = "stop"
	PolicyThermalize ParticlePolicy = "thermalize"
	PolicyPeriodic   ParticlePolicy = "periodic"
	PolicyNone       ParticlePolicy = "none"
)

func validParticlePolicy(p ParticlePolicy) bool {
	switch p {
	case PolicyReflective, PolicyRemove, PolicyStop, PolicyThermalize, PolicyPeriodic, PolicyNone:
		return true
	default:
		return false
	}
}

// SpeciesConfig is one species.* record from the deck (spec.md S6 table).
type SpeciesConfig struct {
	Name                string                          `yaml:"name"`
	Mass                float64                          `yaml:"mass"` // 0 => photon
	Charge              float64                          `yaml:"charge"`
	Tracked             bool                             `yaml:"tracked"`
	BoundaryConditions  [][2]ParticlePolicy              `yaml:"boundary_conditions"` // indexed by axis, [min,max]
	ThermalMomentum     float64                          `yaml:"thermal_momentum"`
}

func (s *SpeciesConfig) IsPhoton() bool { return s.Mass == 0 }

// DeckParams is the fully populated parameter record (spec.md S6 table).
type DeckParams struct {
	Geometry Geometry `yaml:"geometry"`

	CellLength    []float64 `yaml:"cell_length"`
	NSpaceGlobal  []int     `yaml:"n_space_global"`
	NSpacePerPatch []int    `yaml:"n_space_per_patch"`

	Timestep float64 `yaml:"timestep"`
	NTime    int     `yaml:"n_time"`

	EMBCs [][2]EMBoundary `yaml:"EM_BCs"` // indexed by axis, [min,max]

	Species []SpeciesConfig `yaml:"species"`

	SolvePoisson     bool    `yaml:"solve_poisson"`
	TimeFieldsFrozen float64 `yaml:"time_fields_frozen"`

	HasLoadBalancing          bool    `yaml:"has_load_balancing"`
	LoadBalancingEvery        int     `yaml:"load_balancing_every"`
	LoadBalancingCostParticle float64 `yaml:"load_balancing_cost_particle"`
	LoadBalancingCostCell     float64 `yaml:"load_balancing_cost_cell"`

	HasWindow      bool    `yaml:"has_window"`
	WindowTStart   float64 `yaml:"window_t_start"`
	WindowVelocity int     `yaml:"window_velocity"` // shift every k steps, k = WindowVelocity

	GlobalFactor []int `yaml:"global_factor"`

	CheckpointEvery int    `yaml:"checkpoint_every"`
	CheckpointDir   string `yaml:"checkpoint_dir"`

	RestartFromStep int `yaml:"restart_from_step"`
}

// Parse populates p from deck YAML bytes, mirroring
// InputParameters2D.Parse's single-call ghodss/yaml unmarshal.
func (p *DeckParams) Parse(data []byte) error {
	return yaml.Unmarshal(data, p)
}

// Print writes the resolved configuration, mirroring
// InputParameters2D.Print's sorted, labeled dump.
func (p *DeckParams) Print() {
	fmt.Printf("[%s]\t\t\t= Geometry\n", p.Geometry)
	fmt.Printf("%8.5f\t\t= Timestep\n", p.Timestep)
	fmt.Printf("[%d]\t\t\t\t= N_time\n", p.NTime)
	names := make([]string, len(p.Species))
	for i, s := range p.Species {
		names[i] = s.Name
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Printf("species[%s]\n", n)
	}
	if p.HasWindow {
		fmt.Printf("moving window starts at t=%8.5f, shifts every %d steps\n",
			p.WindowTStart, p.WindowVelocity)
	}
	if p.HasLoadBalancing {
		fmt.Printf("load balancing every %d steps\n", p.LoadBalancingEvery)
	}
}
