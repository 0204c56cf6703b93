// Package comm implements the SPMD message-passing layer of spec.md S5:
// point-to-point non-blocking sends/receives plus barrier and allgather
// collectives, addressed by rank.
//
// No MPI binding exists anywhere in the retrieved example pack, so a
// process is modeled as a goroutine holding one Rank, and LocalTransport
// wires ranks together with buffered channels. The post/deliver/receive
// protocol below is the same three-phase pattern gocfd's
// utils/parallel_utils.go MailBox uses to connect worker goroutines
// across a PartitionMap, generalized from "goroutine handling a matrix
// shard" to "process handling a contiguous run of patches".
package comm

import "sync"

// DynBuffer is an append-only, resettable message buffer, mirroring
// gocfd's utils.DynBuffer used inside MailBox.
type DynBuffer[T any] struct {
	mu    sync.Mutex
	cells []T
}

func NewDynBuffer[T any]() *DynBuffer[T] { return &DynBuffer[T]{} }

func (b *DynBuffer[T]) Add(v T) {
	b.mu.Lock()
	b.cells = append(b.cells, v)
	b.mu.Unlock()
}

func (b *DynBuffer[T]) Cells() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]T, len(b.cells))
	copy(out, b.cells)
	return out
}

func (b *DynBuffer[T]) Reset() {
	b.mu.Lock()
	b.cells = b.cells[:0]
	b.mu.Unlock()
}

// MailBox implements the post/deliver/receive protocol: each rank posts
// messages addressed to target ranks into a per-target outbox;
// DeliverMyMessages flushes the outbox onto the target's channel;
// ReceiveMyMessages drains the channel (non-blocking) into the local
// inbox. This is gocfd's MailBox[T] unchanged in structure, generalized
// from thread index to comm.Rank.
type MailBox[T any] struct {
	NP           int
	messageChans []chan *DynBuffer[T]
	postQs       []map[int]*DynBuffer[T]
	postMu       []sync.Mutex
	receiveQs    []*DynBuffer[T]
	mailFlag     []bool
	flagMu       []sync.Mutex
}

func NewMailBox[T any](np int) *MailBox[T] {
	mb := &MailBox[T]{
		NP:           np,
		messageChans: make([]chan *DynBuffer[T], np),
		postQs:       make([]map[int]*DynBuffer[T], np),
		postMu:       make([]sync.Mutex, np),
		receiveQs:    make([]*DynBuffer[T], np),
		mailFlag:     make([]bool, np),
		flagMu:       make([]sync.Mutex, np),
	}
	for n := 0; n < np; n++ {
		mb.messageChans[n] = make(chan *DynBuffer[T], np)
		mb.postQs[n] = make(map[int]*DynBuffer[T])
		mb.receiveQs[n] = NewDynBuffer[T]()
	}
	return mb
}

func (mb *MailBox[T]) PostMessage(myRank, targetRank int, msg T) {
	mb.postMu[myRank].Lock()
	tgt, exists := mb.postQs[myRank][targetRank]
	if !exists {
		tgt = NewDynBuffer[T]()
		mb.postQs[myRank][targetRank] = tgt
	}
	mb.postMu[myRank].Unlock()
	tgt.Add(msg)

	mb.flagMu[myRank].Lock()
	mb.mailFlag[myRank] = true
	mb.flagMu[myRank].Unlock()
}

func (mb *MailBox[T]) PostMessageToAll(myRank int, msg T) {
	for k := 0; k < mb.NP; k++ {
		if k != myRank {
			mb.PostMessage(myRank, k, msg)
		}
	}
}

// DeliverMyMessages flushes myRank's outbox onto each target's channel.
func (mb *MailBox[T]) DeliverMyMessages(myRank int) {
	mb.flagMu[myRank].Lock()
	flagged := mb.mailFlag[myRank]
	mb.mailFlag[myRank] = false
	mb.flagMu[myRank].Unlock()
	if !flagged {
		return
	}
	mb.postMu[myRank].Lock()
	q := mb.postQs[myRank]
	mb.postQs[myRank] = make(map[int]*DynBuffer[T])
	mb.postMu[myRank].Unlock()
	for target, buf := range q {
		mb.messageChans[target] <- buf
	}
}

// ReceiveMyMessages drains myRank's incoming channel (non-blocking) into
// its local inbox.
func (mb *MailBox[T]) ReceiveMyMessages(myRank int) {
	for {
		select {
		case buf := <-mb.messageChans[myRank]:
			for _, msg := range buf.Cells() {
				mb.receiveQs[myRank].Add(msg)
			}
		default:
			return
		}
	}
}

func (mb *MailBox[T]) Inbox(myRank int) []T { return mb.receiveQs[myRank].Cells() }

func (mb *MailBox[T]) ClearMyMessages(myRank int) { mb.receiveQs[myRank].Reset() }
