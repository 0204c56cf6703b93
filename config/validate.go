package config

import (
	"fmt"

	"github.com/notargets/pic/errs"
)

// Validate performs every Configuration error check of spec.md S7(1):
// unknown boundary policy, EM/particle BC periodicity mismatch (S4.2
// validity rule), nonconformant global_factor, and axisymmetric radial
// policy restriction (S4.2, S8 scenario 6). It is called once at setup,
// before any Patch is constructed, so a bad deck never reaches the time
// loop.
func (p *DeckParams) Validate() error {
	nd := p.Geometry.NDimField()
	if nd == 0 {
		return errs.Config("unknown geometry %q", p.Geometry)
	}
	if len(p.EMBCs) != nd {
		return errs.Config("EM_BCs has %d axes, geometry %q needs %d", len(p.EMBCs), p.Geometry, nd)
	}
	if len(p.CellLength) != nd || len(p.NSpaceGlobal) != nd {
		return errs.Config("cell_length/n_space_global must have %d entries for geometry %q", nd, p.Geometry)
	}
	if len(p.GlobalFactor) != 0 && len(p.GlobalFactor) != nd {
		return errs.Config("global_factor must have %d entries or be empty, got %d", nd, len(p.GlobalFactor))
	}
	for axis, gf := range p.GlobalFactor {
		if gf <= 0 {
			return errs.Config("global_factor[%d]=%d must be positive", axis, gf)
		}
		if p.NSpacePerPatch != nil && len(p.NSpacePerPatch) == nd {
			npp := p.NSpaceGlobal[axis] / p.NSpacePerPatch[axis]
			if npp%gf != 0 {
				return errs.Config("global_factor[%d]=%d does not divide patch count %d on axis %d", axis, gf, npp, axis)
			}
		}
	}

	for _, sp := range p.Species {
		if len(sp.BoundaryConditions) != nd {
			return errs.Config("species %q boundary_conditions has %d axes, need %d", sp.Name, len(sp.BoundaryConditions), nd)
		}
		for axis, faces := range sp.BoundaryConditions {
			for side, pol := range faces {
				if err := p.validatePolicy(sp, axis, BCFace(side), pol); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *DeckParams) validatePolicy(sp SpeciesConfig, axis int, side BCFace, pol ParticlePolicy) error {
	if !validParticlePolicy(pol) {
		return errs.Config("species %q: unknown boundary policy %q on axis %d side %d", sp.Name, pol, axis, side)
	}

	radialAxis := p.Geometry.Axisymmetric() && axis == 1
	if radialAxis {
		if side == FaceMin && pol != PolicyNone {
			return errs.Config("species %q: axisymmetric inner radial boundary (r=0) admits no removal policy, got %q", sp.Name, pol)
		}
		if side == FaceMax && pol != PolicyRemove && pol != PolicyNone {
			return errs.Config("species %q: axisymmetric outer radial boundary only admits 'remove', got %q", sp.Name, pol)
		}
	}

	// Validity rule (spec.md S4.2): for an untracked species, if the EM
	// boundary on this axis is periodic, the particle boundary on that
	// axis must also be periodic.
	emPol := p.EMBCs[axis][side]
	if !sp.Tracked {
		if emPol == EMPeriodic && pol != PolicyPeriodic {
			return errs.Config("species %q: EM boundary on axis %d side %d is periodic but particle boundary is %q",
				sp.Name, axis, side, pol)
		}
		if emPol != EMPeriodic && pol == PolicyPeriodic {
			return errs.Config("species %q: particle boundary on axis %d side %d is periodic but EM boundary is %q",
				sp.Name, axis, side, emPol)
		}
	}
	return nil
}

// ValidateRestartDigest compares a restart checkpoint's recorded params
// digest against the current deck's digest (spec.md S4.8, S7.1).
func ValidateRestartDigest(current, checkpointed string) error {
	if current != checkpointed {
		return errs.Config("restart parameter digest mismatch: running=%s checkpoint=%s", current, checkpointed)
	}
	return nil
}

// Digest computes a stable textual digest of the parameters that must
// match across a restart (spec.md S3 "global parameters digest").
func (p *DeckParams) Digest() string {
	return fmt.Sprintf("geom=%s cells=%v dx=%v dt=%g species=%d",
		p.Geometry, p.NSpaceGlobal, p.CellLength, p.Timestep, len(p.Species))
}
