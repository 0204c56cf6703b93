package config

import "testing"

func baseDeck() *DeckParams {
	return &DeckParams{
		Geometry:     Geometry1D3V,
		CellLength:   []float64{1},
		NSpaceGlobal: []int{20},
		EMBCs:        [][2]EMBoundary{{EMSilverMuller, EMSilverMuller}},
		Species: []SpeciesConfig{
			{Name: "e", Mass: 1, Charge: -1,
				BoundaryConditions: [][2]ParticlePolicy{{PolicyReflective, PolicyReflective}}},
		},
	}
}

func TestValidateAcceptsAWellFormedDeck(t *testing.T) {
	if err := baseDeck().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsAnUnknownParticlePolicy(t *testing.T) {
	d := baseDeck()
	d.Species[0].BoundaryConditions[0][0] = ParticlePolicy("bogus")
	if err := d.Validate(); err == nil {
		t.Fatalf("Validate() = nil, want an error for an unknown policy")
	}
}

func TestValidateEnforcesPeriodicityMatchBetweenEMAndParticleBCs(t *testing.T) {
	d := baseDeck()
	d.EMBCs[0][0] = EMPeriodic
	// particle boundary on the same axis/side is still reflective: mismatch.
	if err := d.Validate(); err == nil {
		t.Fatalf("Validate() = nil, want an error for EM-periodic/particle-non-periodic mismatch")
	}

	d.Species[0].BoundaryConditions[0][0] = PolicyPeriodic
	d.Species[0].BoundaryConditions[0][1] = PolicyPeriodic
	d.EMBCs[0][1] = EMPeriodic
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil once both sides are periodic on both layers", err)
	}
}

func TestValidateRestrictsAxisymmetricRadialPolicies(t *testing.T) {
	d := &DeckParams{
		Geometry:     Geometry3DRZ,
		CellLength:   []float64{1, 1},
		NSpaceGlobal: []int{20, 10},
		EMBCs:        [][2]EMBoundary{{EMSilverMuller, EMSilverMuller}, {EMSilverMuller, EMSilverMuller}},
		Species: []SpeciesConfig{
			{Name: "e", Mass: 1, Charge: -1,
				BoundaryConditions: [][2]ParticlePolicy{
					{PolicyReflective, PolicyReflective}, // axis 0: unrestricted
					{PolicyNone, PolicyRemove},           // axis 1 (radial): r=0 none, outer remove
				}},
		},
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil for a legal radial policy pair", err)
	}

	d.Species[0].BoundaryConditions[1][0] = PolicyReflective
	if err := d.Validate(); err == nil {
		t.Fatalf("Validate() = nil, want an error reflecting off the axis at r=0")
	}
}

func TestDigestChangesWithPhysicallyMeaningfulParameters(t *testing.T) {
	a := baseDeck()
	b := baseDeck()
	if a.Digest() != b.Digest() {
		t.Fatalf("two identical decks produced different digests: %q vs %q", a.Digest(), b.Digest())
	}
	b.Timestep = a.Timestep + 1
	if a.Digest() == b.Digest() {
		t.Fatalf("changing Timestep did not change the digest")
	}
}

func TestParsePopulatesFromYAML(t *testing.T) {
	data := []byte("geometry: 1d3v\ntimestep: 0.05\nn_time: 10\n")
	var d DeckParams
	if err := d.Parse(data); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Geometry != Geometry1D3V || d.Timestep != 0.05 || d.NTime != 10 {
		t.Fatalf("Parse populated %+v unexpectedly", d)
	}
}
