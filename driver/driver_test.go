package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/pic/checkpoint"
	"github.com/notargets/pic/comm"
	"github.com/notargets/pic/config"
	"github.com/notargets/pic/decomp"
	"github.com/notargets/pic/loadbalance"
	"github.com/notargets/pic/mirror"
	"github.com/notargets/pic/solver"
	"github.com/notargets/pic/species"
	"github.com/notargets/pic/vectorpatch"
)

func testDeck(nTime int) *config.DeckParams {
	return &config.DeckParams{
		Geometry:       config.Geometry1D3V,
		CellLength:     []float64{1},
		NSpaceGlobal:   []int{10},
		NSpacePerPatch: []int{10},
		Timestep:       0.1,
		NTime:          nTime,
		EMBCs:          [][2]config.EMBoundary{{config.EMSilverMuller, config.EMSilverMuller}},
		Species: []config.SpeciesConfig{
			{Name: "e", Mass: 1, Charge: -1,
				BoundaryConditions: [][2]config.ParticlePolicy{{config.PolicyReflective, config.PolicyReflective}}},
		},
	}
}

func oneRankSetup(t *testing.T, nTime int) (*vectorpatch.VectorPatch, *mirror.Domain, Config) {
	t.Helper()
	deck := testDeck(nTime)
	d := decomp.New([]int{1}, 1)
	tr := comm.NewLocalGroup(1)[0]
	vp := vectorpatch.New(deck, d, tr)
	p := vp.Factory.Create(0, []int{0}, []bool{true}, []bool{true})
	vp.Owned[0] = p

	dom := mirror.New(0, []int{1}, d, solver.YeeSolver{Clight: 1})
	cfg := Config{
		Deck:          deck,
		CellsPerPatch: deck.NSpacePerPatch,
		LoadBalance:   nil,
		Cost:          loadbalance.CostModel{Alpha: 1, Beta: 0.01},
	}
	return vp, dom, cfg
}

func TestRunAdvancesTheRequestedStepCount(t *testing.T) {
	vp, dom, cfg := oneRankSetup(t, 5)
	err := Run(vp, dom, cfg, nil)
	assert.NoError(t, err)
}

func TestRunStopsEarlyWhenExitASAPIsSet(t *testing.T) {
	vp, dom, cfg := oneRankSetup(t, 1000)
	exit := &ExitASAP{}
	exit.Set()
	cfg.CheckpointDir = t.TempDir()
	err := Run(vp, dom, cfg, exit)
	assert.NoError(t, err)
}

func TestRunDumpsACheckpointOnSchedule(t *testing.T) {
	vp, dom, cfg := oneRankSetup(t, 3)
	cfg.CheckpointEvery = 1
	cfg.CheckpointDir = t.TempDir()
	err := Run(vp, dom, cfg, nil)
	assert.NoError(t, err)
}

func TestExitASAPIsUnsetByDefault(t *testing.T) {
	e := &ExitASAP{}
	assert.False(t, e.IsSet())
	e.Set()
	assert.True(t, e.IsSet())
}

// TestRestartReproducesAnUninterruptedRunsFields exercises spec.md S8's
// restart-equivalence property: dumping a checkpoint partway through a
// run, reloading it into a fresh VectorPatch, and resuming must leave
// the same field state as never having stopped, since the driver's
// per-step pipeline is fully deterministic for a single rank.
func TestRestartReproducesAnUninterruptedRunsFields(t *testing.T) {
	const total, split = 6, 3

	straight, straightDom, straightCfg := oneRankSetup(t, total)
	straight.Owned[0].Species[0].Add(species.Particle{
		Position: [3]float64{5, 0, 0}, Momentum: [3]float64{2, 0, 0}, Weight: 1,
	})
	require.NoError(t, Run(straight, straightDom, straightCfg, nil))

	firstHalf, firstDom, firstCfg := oneRankSetup(t, split)
	firstHalf.Owned[0].Species[0].Add(species.Particle{
		Position: [3]float64{5, 0, 0}, Momentum: [3]float64{2, 0, 0}, Weight: 1,
	})
	ckptDir := t.TempDir()
	firstCfg.CheckpointDir = ckptDir
	firstCfg.CheckpointEvery = split
	require.NoError(t, Run(firstHalf, firstDom, firstCfg, nil))

	env, err := checkpoint.Load(ckptDir, split)
	require.NoError(t, err)
	require.Equal(t, firstCfg.Deck.Digest(), env.ParamsDigest)

	resumed, resumedDom, resumedCfg := oneRankSetup(t, total)
	blob, ok := checkpoint.FetchPatch(env, 0)
	require.True(t, ok)
	require.NoError(t, resumed.Owned[0].RestoreFromSnapshot(blob))
	resumedCfg.CheckpointDir = ckptDir
	resumedCfg.StartStep = split
	require.NoError(t, Run(resumed, resumedDom, resumedCfg, nil))

	want, got := straight.Owned[0], resumed.Owned[0]
	assert.Equal(t, want.Fields.E[0].Data(), got.Fields.E[0].Data())
	assert.Equal(t, want.Fields.B[2].Data(), got.Fields.B[2].Data())
	assert.Equal(t, want.Fields.Rho.Data(), got.Fields.Rho.Data())
	assert.Equal(t, want.Species[0].P, got.Species[0].P)
}
