package fields

import "testing"

func TestSlabInteriorAddressing(t *testing.T) {
	s := NewSlab([]int{4, 3}, []int{1, 1})
	s.Set(7, s.InteriorLo(0), s.InteriorLo(1))
	if got := s.At(s.InteriorLo(0), s.InteriorLo(1)); got != 7 {
		t.Fatalf("At = %v, want 7", got)
	}
}

func TestFaceGhostExchangeOverwrite(t *testing.T) {
	// Two adjacent slabs sharing an axis-0 face: owner's boundary band
	// copied into neighbor's ghost band (E/B overwrite semantics).
	owner := NewSlab([]int{4, 4}, []int{1, 1})
	neighbor := NewSlab([]int{4, 4}, []int{1, 1})
	for j := 0; j < 4; j++ {
		owner.Set(float64(j+1), owner.InteriorHi(0)-1, j+1)
	}
	buf := owner.FaceSlab(0, 1)
	neighbor.SetGhostBand(0, 0, buf)
	for j := 0; j < 4; j++ {
		want := float64(j + 1)
		if got := neighbor.At(0, j+1); got != want {
			t.Errorf("neighbor ghost[%d] = %v, want %v", j, got, want)
		}
	}
}

func TestGhostExchangeAdditive(t *testing.T) {
	// J/rho additive semantics: receiver adds into its own ghost value
	// rather than overwriting it.
	s := NewSlab([]int{4, 4}, []int{1, 1})
	s.Set(2, 0, 1)
	// The axis-0 ghost band spans axis 1's full stored extent: 4 interior
	// plus 2 ghost cells.
	buf := make([]float64, 6)
	for i := range buf {
		buf[i] = 3
	}
	s.AddGhostBand(0, 0, buf)
	if got := s.At(0, 1); got != 5 {
		t.Fatalf("additive ghost = %v, want 5", got)
	}
}

func TestStateFieldEnergyOnlyCountsInterior(t *testing.T) {
	st := NewState([]int{2, 2}, []int{1, 1})
	// Set a ghost cell only; it must not contribute to FieldEnergy.
	st.E[0].Set(100, 0, 0)
	if e := st.FieldEnergy(); e != 0 {
		t.Fatalf("FieldEnergy = %v, want 0 (ghost-only value must be excluded)", e)
	}
	st.E[0].Set(2, st.E[0].InteriorLo(0), st.E[0].InteriorLo(1))
	if e := st.FieldEnergy(); e != 2 {
		t.Fatalf("FieldEnergy = %v, want 2", e)
	}
}
