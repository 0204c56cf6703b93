package qed

import (
	"testing"

	"github.com/notargets/pic/patch"
)

func TestNoProcessIsANoop(t *testing.T) {
	p := &patch.Patch{}
	NoProcess{}.Apply(p, 0.1) // must not panic on an otherwise-empty patch
}
