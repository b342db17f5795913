package ring

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGeometry is returned when rowSize or capacity is not positive
	// or rowSize is not a multiple of 4.
	ErrInvalidGeometry = errors.New("ring: invalid geometry")

	// ErrBufferTooSmall is returned when the backing region cannot hold capacity rows.
	ErrBufferTooSmall = errors.New("ring: backing buffer too small")
)

// State is the lifecycle state of a slot.
type State uint8

const (
	Empty State = iota
	Pending
	Ready
	Error
	Consumed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Error:
		return "error"
	case Consumed:
		return "consumed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Done reports whether a worker has finished with the slot.
func (s State) Done() bool { return s == Ready || s == Error }

// Ring is a fixed array of row-sized slots over borrowed memory.
type Ring struct {
	mem      []byte
	rowSize  int
	capacity int

	states []State
	rows   []int64
	errs   map[int]error // failed slots only

	dispatched uint64 // next sequence to dispatch
	consumed   uint64 // end of the last returned batch
	released   uint64 // every seq below this is Empty or re-dispatched
	filled     uint64 // highest completed seq + 1
}

// New creates a Ring of capacity slots over mem. mem must hold at least
// capacity*rowSize bytes; extra bytes are ignored.
func New(mem []byte, rowSize, capacity int) (*Ring, error) {
	if rowSize <= 0 || rowSize%4 != 0 || capacity <= 0 {
		return nil, fmt.Errorf("%w: rowSize=%d capacity=%d", ErrInvalidGeometry, rowSize, capacity)
	}
	need := int64(rowSize) * int64(capacity)
	if int64(len(mem)) < need {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, need, len(mem))
	}
	return &Ring{
		mem:      mem[:need],
		rowSize:  rowSize,
		capacity: capacity,
		states:   make([]State, capacity),
		rows:     make([]int64, capacity),
		errs:     make(map[int]error),
	}, nil
}

// Capacity returns the number of slots.
func (r *Ring) Capacity() int { return r.capacity }

// RowSize returns the slot size in bytes.
func (r *Ring) RowSize() int { return r.rowSize }

// Index maps a sequence number to its slot.
func (r *Ring) Index(seq uint64) int { return int(seq % uint64(r.capacity)) }

// Slot returns the backing memory of slot i.
func (r *Ring) Slot(i int) []byte {
	off := i * r.rowSize
	return r.mem[off : off+r.rowSize : off+r.rowSize]
}

// ElementOffset returns the offset of slot i in 4-byte elements.
func (r *Ring) ElementOffset(i int) int { return i * r.rowSize / 4 }

// State returns the state of slot i.
func (r *Ring) State(i int) State { return r.states[i] }

// Row returns the row index slot i was last dispatched with.
func (r *Ring) Row(i int) int64 { return r.rows[i] }

// Err returns the read error recorded for slot i, if any.
func (r *Ring) Err(i int) error { return r.errs[i] }

// Free returns the number of slots that may be dispatched right now.
func (r *Ring) Free() int { return r.capacity - int(r.dispatched-r.released) }

// Dispatch claims the next free slot for row and marks it Pending.
// It returns the slot and its sequence number. ok is false when the ring is full.
func (r *Ring) Dispatch(row int64) (slot int, seq uint64, ok bool) {
	if r.Free() == 0 {
		return 0, 0, false
	}
	seq = r.dispatched
	slot = r.Index(seq)
	r.transition(slot, Empty, Pending)
	r.rows[slot] = row
	r.dispatched++
	return slot, seq, true
}

// Complete records the outcome of the read into slot (Ready or Error).
func (r *Ring) Complete(slot int, seq uint64, err error) {
	if err != nil {
		r.transition(slot, Pending, Error)
		r.errs[slot] = err
	} else {
		r.transition(slot, Pending, Ready)
	}
	if seq+1 > r.filled {
		r.filled = seq + 1
	}
}

// Consume marks the n slots starting at sequence start as handed to the consumer.
// Every slot in [ConsumedThrough, start+n) must be Ready or Error; slots in
// [ConsumedThrough, start) are skipped and marked Consumed as well.
func (r *Ring) Consume(start uint64, n int) {
	end := start + uint64(n)
	if start < r.consumed || end > r.dispatched {
		panic(fmt.Sprintf("ring: consume [%d,%d) outside [%d,%d)", start, end, r.consumed, r.dispatched))
	}
	for seq := r.consumed; seq < end; seq++ {
		slot := r.Index(seq)
		if !r.states[slot].Done() {
			panic(fmt.Sprintf("ring: consume of %s slot %d", r.states[slot], slot))
		}
		r.states[slot] = Consumed
	}
	r.consumed = end
}

// Release returns every Consumed slot to Empty so it can be dispatched again.
func (r *Ring) Release() {
	for seq := r.released; seq < r.consumed; seq++ {
		slot := r.Index(seq)
		r.transition(slot, Consumed, Empty)
		delete(r.errs, slot)
	}
	r.released = r.consumed
}

// DoneThrough returns the first sequence in [from, to) whose read has not
// finished, or to if every slot in the range is Ready or Error.
func (r *Ring) DoneThrough(from, to uint64) uint64 {
	for seq := from; seq < to; seq++ {
		if !r.states[r.Index(seq)].Done() {
			return seq
		}
	}
	return to
}

// FirstError returns the first slot in [from, to) that failed.
func (r *Ring) FirstError(from, to uint64) (slot int, ok bool) {
	for seq := from; seq < to; seq++ {
		s := r.Index(seq)
		if r.states[s] == Error {
			return s, true
		}
	}
	return 0, false
}

// Dispatched returns the sequence number of the next slot to dispatch.
func (r *Ring) Dispatched() uint64 { return r.dispatched }

// ConsumedThrough returns the end sequence of the last returned batch.
func (r *Ring) ConsumedThrough() uint64 { return r.consumed }

// Released returns the sequence below which every slot has been reclaimed.
func (r *Ring) Released() uint64 { return r.released }

// FilledThrough returns one past the highest sequence any worker completed.
func (r *Ring) FilledThrough() uint64 { return r.filled }

func (r *Ring) transition(slot int, from, to State) {
	if r.states[slot] != from {
		panic(fmt.Sprintf("ring: slot %d is %s, want %s before %s", slot, r.states[slot], from, to))
	}
	r.states[slot] = to
}
