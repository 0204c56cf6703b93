package comm

import (
	"sync"

	"github.com/notargets/pic/errs"
)

// Rank identifies one SPMD process.
type Rank int

// Transport is the message-passing layer spec.md S5 requires: buffered
// point-to-point send/receive addressed by rank, plus the two
// collectives the driver needs (Barrier before/after the mirror-domain
// solve, AllGather to publish updated patch_count[]/offset[] after a
// load-balance event).
type Transport interface {
	Rank() Rank
	Size() int

	// Send posts a message for delivery to target; non-blocking from the
	// caller's perspective (spec.md S5 "point-to-point sends/receives are
	// non-blocking").
	Send(target Rank, tag string, payload []byte)
	// Recv drains all messages received under tag since the last Recv
	// call. The caller decides how many messages to expect.
	Recv(tag string) [][]byte

	// Flush is the explicit "post, deliver" boundary: messages sent
	// before Flush are visible to peers' Recv only after Flush returns
	// and every rank has called Flush at least once since the send
	// (callers pair Flush with Barrier to make this deterministic).
	Flush()

	// Barrier blocks until every rank has called Barrier for this phase.
	// spec.md S4.5 "a global barrier separates the gather, solve, and
	// scatter phases"; S4.9 "barriers ... mandatory because the solve is
	// a process-wide collective".
	Barrier() error

	// AllGather returns, at every rank, the concatenation of each rank's
	// contributed value in rank order. Used to publish patch_count[]
	// after a load-balance event (spec.md S4.7 step 4).
	AllGather(mine []byte) ([][]byte, error)

	// Abort is the message-passing abort primitive for InvariantKind
	// errors (spec.md S7.2): every rank observes the abort exactly once.
	Abort(reason error)
	Aborted() (bool, error)
}

type message struct {
	from    Rank
	tag     string
	payload []byte
}

// LocalTransport wires ranks together with buffered channels; each rank
// is a goroutine in this process. This is the generalization of gocfd's
// MailBox from "goroutine handling a matrix shard" to "process handling
// a contiguous run of patches" called out in SPEC_FULL.md.
type LocalTransport struct {
	rank Rank
	size int
	mb   *MailBox[message]

	barrier *barrierGroup
	abort   *abortState
}

// abortState is shared by every rank in a group so Abort on one rank is
// observed by Aborted() on every other (spec.md S7.2 "all processes
// abort via the message-passing abort primitive").
type abortState struct {
	once sync.Once
	mu   sync.RWMutex
	err  error
}

// barrierGroup implements a reusable N-party rendezvous, one instance
// shared by every rank's LocalTransport.
type barrierGroup struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	arrived int
	gen     int

	gatherMu   sync.Mutex
	gatherGen  int
	gatherBuf  [][]byte
	gatherDone int
}

func newBarrierGroup(n int) *barrierGroup {
	bg := &barrierGroup{n: n, gatherBuf: make([][]byte, n)}
	bg.cond = sync.NewCond(&bg.mu)
	return bg
}

// NewLocalGroup builds size LocalTransports sharing one MailBox and
// barrier group, i.e. one simulated SPMD job of size ranks.
func NewLocalGroup(size int) []*LocalTransport {
	mb := NewMailBox[message](size)
	bg := newBarrierGroup(size)
	as := &abortState{}
	group := make([]*LocalTransport, size)
	for r := 0; r < size; r++ {
		group[r] = &LocalTransport{rank: Rank(r), size: size, mb: mb, barrier: bg, abort: as}
	}
	return group
}

func (t *LocalTransport) Rank() Rank { return t.rank }
func (t *LocalTransport) Size() int  { return t.size }

func (t *LocalTransport) Send(target Rank, tag string, payload []byte) {
	t.mb.PostMessage(int(t.rank), int(target), message{from: t.rank, tag: tag, payload: payload})
}

func (t *LocalTransport) Flush() {
	t.mb.DeliverMyMessages(int(t.rank))
}

func (t *LocalTransport) Recv(tag string) [][]byte {
	t.mb.ReceiveMyMessages(int(t.rank))
	var out [][]byte
	var keep []message
	for _, m := range t.mb.Inbox(int(t.rank)) {
		if m.tag == tag {
			out = append(out, m.payload)
		} else {
			keep = append(keep, m)
		}
	}
	t.mb.ClearMyMessages(int(t.rank))
	for _, m := range keep {
		t.mb.receiveQs[int(t.rank)].Add(m)
	}
	return out
}

func (t *LocalTransport) Barrier() error {
	if ok, err := t.Aborted(); ok {
		return err
	}
	bg := t.barrier
	bg.mu.Lock()
	gen := bg.gen
	bg.arrived++
	if bg.arrived == bg.n {
		bg.arrived = 0
		bg.gen++
		bg.cond.Broadcast()
	} else {
		for bg.gen == gen {
			bg.cond.Wait()
			if ok, _ := t.Aborted(); ok {
				break
			}
		}
	}
	bg.mu.Unlock()
	if ok, err := t.Aborted(); ok {
		return err
	}
	return nil
}

func (t *LocalTransport) AllGather(mine []byte) ([][]byte, error) {
	if ok, err := t.Aborted(); ok {
		return nil, err
	}
	bg := t.barrier
	bg.gatherMu.Lock()
	if bg.gatherDone == 0 {
		bg.gatherBuf = make([][]byte, bg.n)
	}
	bg.gatherBuf[int(t.rank)] = mine
	bg.gatherDone++
	if bg.gatherDone == bg.n {
		bg.gatherGen++
		bg.gatherDone = 0
	}
	result := bg.gatherBuf
	bg.gatherMu.Unlock()

	// Every rank contributes before entering the barrier, so once it
	// releases every slot of this generation's buffer is filled.
	if err := t.Barrier(); err != nil {
		return nil, err
	}
	return result, nil
}

func (t *LocalTransport) Abort(reason error) {
	t.abort.once.Do(func() {
		t.abort.mu.Lock()
		t.abort.err = errs.Comm(reason, "rank %d aborted the run", t.rank)
		t.abort.mu.Unlock()
	})
	// Unblock any rank currently parked in Barrier so the abort is
	// observed promptly rather than after a full barrier cycle.
	t.barrier.mu.Lock()
	t.barrier.cond.Broadcast()
	t.barrier.mu.Unlock()
}

func (t *LocalTransport) Aborted() (bool, error) {
	t.abort.mu.RLock()
	defer t.abort.mu.RUnlock()
	return t.abort.err != nil, t.abort.err
}
