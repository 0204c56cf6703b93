// Package checkpoint implements the durable persistent-state container of
// spec.md S3/S4.8/S6: a self-describing binary blob keyed by producing
// step, with independently addressable per-patch payloads so a restarted
// run under a different process count can fetch exactly the patches it
// now owns by direct random access (spec.md S4.8).
package checkpoint

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DataDog/zstd"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/notargets/pic/errs"
)

// Envelope is the top-level container (spec.md S6 "top-level groups:
// /params_digest, /patch_distribution, /patches/<global_index>/...").
// Go struct fields stand in for HDF5 groups, per SPEC_FULL's C8 note;
// HDF5 itself is an explicit out-of-scope external collaborator
// (spec.md S1).
type Envelope struct {
	Step             int
	ParamsDigest     string
	PatchDistribution []int // patch_count[r], one entry per rank
	NMoved           int
	// Patches maps global patch index to its gob payload
	// (patch.Patch.Snapshot's output); Dump compresses the whole
	// envelope once, not each payload separately.
	Patches map[int][]byte
}

// Dump serializes env and writes it under dir/step-<n>.chk, expanding a
// leading "~" the way a checkpoint-directory deck value typically needs
// (mitchellh/go-homedir, the same expansion gocfd-style CLIs apply to a
// deck or output path typed at a shell). Dump failures are non-fatal at
// the call site (spec.md S7.4): the caller logs and retries next
// schedule; this function only reports the error, it does not decide
// fatality.
func Dump(dir string, env Envelope) error {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return err
	}
	compressed, err := zstd.Compress(nil, buf.Bytes())
	if err != nil {
		return err
	}
	path := filepath.Join(expanded, fmt.Sprintf("step-%d.chk", env.Step))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads and decompresses the envelope for step, expanding "~" in
// dir the same way Dump does. Restore failures are always fatal
// (spec.md S7.5), reported as an errs.Config so the caller's exit code
// matches a setup-time configuration failure.
func Load(dir string, step int) (*Envelope, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, errs.Config("checkpoint: expanding directory %q: %v", dir, err)
	}
	path := filepath.Join(expanded, fmt.Sprintf("step-%d.chk", step))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Config("checkpoint: reading %q: %v", path, err)
	}
	decompressed, err := zstd.Decompress(nil, raw)
	if err != nil {
		return nil, errs.Config("checkpoint: decompressing %q: %v", path, err)
	}
	var env Envelope
	if err := gob.NewDecoder(bytes.NewReader(decompressed)).Decode(&env); err != nil {
		return nil, errs.Config("checkpoint: decoding %q: %v", path, err)
	}
	return &env, nil
}

// ValidateDigest enforces spec.md S4.8/S7.1's restart parameter-digest
// check: the checkpoint's recorded digest must match the restarting
// deck's, or the run is a Configuration error before the time loop
// starts.
func ValidateDigest(env *Envelope, currentDigest string) error {
	if env.ParamsDigest != currentDigest {
		return errs.Config("checkpoint step %d: parameter digest %q does not match current deck digest %q",
			env.Step, env.ParamsDigest, currentDigest)
	}
	return nil
}

// PatchesForRank returns the global patch indices this rank owns under
// the checkpoint's own patch_distribution — used only to validate a
// same-process-count restart's expectations; a different process count
// restart instead recomputes ownership from the *new* decomposition and
// still fetches each patch by direct random access into env.Patches
// (spec.md S4.8).
func PatchesForRank(env *Envelope, rank int) []int {
	offset := 0
	for r := 0; r < rank && r < len(env.PatchDistribution); r++ {
		offset += env.PatchDistribution[r]
	}
	count := 0
	if rank < len(env.PatchDistribution) {
		count = env.PatchDistribution[rank]
	}
	out := make([]int, 0, count)
	for p := offset; p < offset+count; p++ {
		out = append(out, p)
	}
	return out
}

// FetchPatch is the "direct random access into the checkpoint blob" of
// spec.md S4.8: independent of which rank produced it, any patch's
// payload can be retrieved by its global index alone.
func FetchPatch(env *Envelope, globalIndex int) ([]byte, bool) {
	blob, ok := env.Patches[globalIndex]
	return blob, ok
}
