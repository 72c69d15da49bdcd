package timing

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Magic tags a region as holding timing data in the current layout.
// Bump the trailing digit when the layout changes so stale readers
// detach instead of misreading.
const Magic uint64 = 0x41524e4401 // "ARND" << 8 | layout version 1

// Size is the region size in bytes.
const Size = int(unsafe.Sizeof(record{}))

// snapshotRetries bounds how many times Snapshot re-reads before
// giving up. Collisions are rare; three attempts cover a writer that
// lands mid-read twice in a row.
const snapshotRetries = 3

var (
	ErrRegionTooSmall  = errors.New("timing: region smaller than record size")
	ErrRegionUnaligned = errors.New("timing: region not 8-byte aligned")
	ErrBadMagic        = errors.New("timing: region magic mismatch")
)

// record is the in-memory layout of the shared region. All fields are
// 64-bit so the struct has no padding on any supported platform.
type record struct {
	magic             atomic.Uint64
	sequence          atomic.Uint64
	framesPlayed      atomic.Uint64
	ringReadFrames    atomic.Uint64
	serverMonotonicNS atomic.Uint64
	underrunCount     atomic.Uint64
}

// Snapshot is one consistent view of the published payload.
type Snapshot struct {
	// FramesPlayed is the total frame count handed to the output device.
	FramesPlayed uint64
	// RingReadFrames accumulates frames drained from the transport ring.
	RingReadFrames uint64
	// ServerMonotonicNS is the writer's monotonic clock at publish time.
	ServerMonotonicNS uint64
	// UnderrunCount accumulates device underruns observed by the writer.
	UnderrunCount uint64
}

// Writer publishes timing updates into a region. It must only be used
// from a single goroutine.
type Writer struct {
	rec *record
}

// Reader takes lock-free snapshots of a region. Any number of Readers
// may observe the same region concurrently.
type Reader struct {
	rec *record
}

func mapRecord(region []byte) (*record, error) {
	if len(region) < Size {
		return nil, fmt.Errorf("%w: %d < %d", ErrRegionTooSmall, len(region), Size)
	}
	p := unsafe.Pointer(unsafe.SliceData(region))
	if uintptr(p)%8 != 0 {
		return nil, ErrRegionUnaligned
	}
	return (*record)(p), nil
}

// Init formats a region for writing: it clears the payload, resets the
// sequence and stores the magic tag last so readers never attach to a
// half-initialized region. It returns the Writer for the region.
func Init(region []byte) (*Writer, error) {
	rec, err := mapRecord(region)
	if err != nil {
		return nil, err
	}
	rec.sequence.Store(0)
	rec.framesPlayed.Store(0)
	rec.ringReadFrames.Store(0)
	rec.serverMonotonicNS.Store(0)
	rec.underrunCount.Store(0)
	rec.magic.Store(Magic)
	return &Writer{rec: rec}, nil
}

// Attach validates an already-initialized region and returns a Reader
// for it. Size is checked before magic: an undersized region must never
// be dereferenced at the magic offset.
func Attach(region []byte) (*Reader, error) {
	rec, err := mapRecord(region)
	if err != nil {
		return nil, err
	}
	if got := rec.magic.Load(); got != Magic {
		return nil, fmt.Errorf("%w: got %#x, want %#x", ErrBadMagic, got, Magic)
	}
	return &Reader{rec: rec}, nil
}

// Publish stores a new payload under the seqlock protocol. Absolute
// fields replace the previous value; ringReadDelta and underrunDelta
// are added to their accumulators.
func (w *Writer) Publish(framesPlayed, serverMonotonicNS uint64, ringReadDelta, underrunDelta uint64) {
	rec := w.rec
	rec.sequence.Add(1) // odd: write in progress
	rec.framesPlayed.Store(framesPlayed)
	rec.ringReadFrames.Store(rec.ringReadFrames.Load() + ringReadDelta)
	rec.serverMonotonicNS.Store(serverMonotonicNS)
	rec.underrunCount.Store(rec.underrunCount.Load() + underrunDelta)
	rec.sequence.Add(1) // even: payload consistent
}

// Sequence returns the current raw sequence value. Odd values mean a
// write is in flight.
func (w *Writer) Sequence() uint64 { return w.rec.sequence.Load() }

// Snapshot attempts to read one consistent payload. ok is false when
// every retry collided with a concurrent write; the caller keeps its
// previous snapshot in that case.
func (r *Reader) Snapshot() (s Snapshot, ok bool) {
	rec := r.rec
	for attempt := 0; attempt < snapshotRetries; attempt++ {
		before := rec.sequence.Load()
		if before&1 != 0 {
			continue
		}
		s = Snapshot{
			FramesPlayed:      rec.framesPlayed.Load(),
			RingReadFrames:    rec.ringReadFrames.Load(),
			ServerMonotonicNS: rec.serverMonotonicNS.Load(),
			UnderrunCount:     rec.underrunCount.Load(),
		}
		if rec.sequence.Load() == before {
			return s, true
		}
	}
	return Snapshot{}, false
}

// NewRegion allocates a properly aligned region and returns it together
// with its Writer. Useful when the region lives in process memory
// rather than a shared mapping.
func NewRegion() ([]byte, *Writer) {
	rec := new(record)
	region := unsafe.Slice((*byte)(unsafe.Pointer(rec)), Size)
	w, err := Init(region)
	if err != nil {
		panic(err)
	}
	return region, w
}
