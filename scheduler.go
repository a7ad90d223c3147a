package colony

import (
	"fmt"
	"log"
	"reflect"
	"runtime"
	"sync"
	"time"

	"github.com/TheBitDrifter/bark"
	"golang.org/x/sync/errgroup"
)

// TickRate is how often a registered system's Update runs.
type TickRate int

const (
	RateManual TickRate = iota
	RateEveryFrame
	Rate10ms
	Rate16ms
	Rate33ms
	Rate100ms
	Rate250ms
	Rate500ms
	Rate1s
	Rate2s
	Rate5s
	Rate10s
)

// intervalMS is the gating interval for a rate, in milliseconds.
// RateManual and RateEveryFrame both return 0: Manual systems are
// excluded from batches entirely (never gated), EveryFrame systems run
// unconditionally every pass (spec.md section 4.9).
func (r TickRate) intervalMS() float64 {
	switch r {
	case Rate10ms:
		return 10
	case Rate16ms:
		return 16
	case Rate33ms:
		return 33
	case Rate100ms:
		return 100
	case Rate250ms:
		return 250
	case Rate500ms:
		return 500
	case Rate1s:
		return 1000
	case Rate2s:
		return 2000
	case Rate5s:
		return 5000
	case Rate10s:
		return 10000
	default:
		return 0
	}
}

// System is the author contract every scheduled unit of per-frame work
// implements (spec.md section 6).
type System interface {
	Name() string
	ReadSet() []Component
	WriteSet() []Component
	Rate() TickRate
	OnInitialize(w *World)
	Update(w *World, delta float64) error
	OnShutdown(w *World)
}

type systemRecord struct {
	sys         System
	typ         reflect.Type
	enabled     bool
	accumulator float64
	stats       SystemStats
}

func (r *systemRecord) readSig() Signature {
	sig, err := NewSignature(r.sys.ReadSet()...)
	if err != nil {
		panic(bark.AddTrace(err))
	}
	return sig
}

func (r *systemRecord) writeSig() Signature {
	sig, err := NewSignature(r.sys.WriteSet()...)
	if err != nil {
		panic(bark.AddTrace(err))
	}
	return sig
}

// Scheduler analyzes system read/write sets, partitions systems into
// conflict-free batches, and dispatches each batch in parallel on a
// fixed worker pool (spec.md section 4.9). Batch-level parallel joins
// use golang.org/x/sync/errgroup, the same join primitive the rest of
// the retrieved pack reaches for around fan-out/fan-in goroutine groups.
type Scheduler struct {
	mu              sync.RWMutex
	systems         []*systemRecord
	batches         [][]*systemRecord
	warnThresholdMS float64
}

// NewScheduler returns an empty Scheduler. warnThresholdMS is the EMA
// threshold (milliseconds) above which a system's timing is logged as a
// warning (spec.md section 5); 3ms is the spec's example value.
func NewScheduler(warnThresholdMS float64) *Scheduler {
	return &Scheduler{warnThresholdMS: warnThresholdMS}
}

// Register adds a system, rejecting a second registration of the same
// concrete type (spec.md's DuplicateSystem error kind).
func (s *Scheduler) Register(sys System) error {
	t := reflect.TypeOf(sys)

	s.mu.Lock()
	for _, r := range s.systems {
		if r.typ == t {
			s.mu.Unlock()
			return DuplicateSystemError{Name: sys.Name()}
		}
	}
	rec := &systemRecord{sys: sys, typ: t, enabled: true}
	s.systems = append(s.systems, rec)
	s.recomputeBatchesLocked()
	s.mu.Unlock()
	return nil
}

// Unregister removes the registered system of concrete type T, if any,
// calling its OnShutdown hook first.
func Unregister[T System](s *Scheduler, w *World) {
	t := reflect.TypeFor[T]()

	s.mu.Lock()
	idx := -1
	for i, r := range s.systems {
		if r.typ == t {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	rec := s.systems[idx]
	s.systems = append(s.systems[:idx], s.systems[idx+1:]...)
	s.recomputeBatchesLocked()
	s.mu.Unlock()

	rec.sys.OnShutdown(w)
}

// GetSystem returns the registered system of concrete type T, if any.
func GetSystem[T System](s *Scheduler) (T, bool) {
	var zero T
	t := reflect.TypeFor[T]()

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.systems {
		if r.typ == t {
			return r.sys.(T), true
		}
	}
	return zero, false
}

// SettingsOf returns the Settings descriptor for the registered system of
// concrete type T, if it is registered and implements SettingsProvider.
func SettingsOf[T System](s *Scheduler) (Settings, bool) {
	sys, ok := GetSystem[T](s)
	if !ok {
		return nil, false
	}
	provider, ok := any(sys).(SettingsProvider)
	if !ok {
		return nil, false
	}
	return provider.Settings()
}

// setEnabled flips the enabled flag for the registered system of
// concrete type T. Disabled systems stay in their batch but are skipped
// at dispatch time (spec.md section 4.9's state machine).
func setEnabled[T System](s *Scheduler, enabled bool) {
	t := reflect.TypeFor[T]()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.systems {
		if r.typ == t {
			r.enabled = enabled
			return
		}
	}
}

// Enable turns on the registered system of concrete type T.
func Enable[T System](s *Scheduler) { setEnabled[T](s, true) }

// Disable turns off the registered system of concrete type T.
func Disable[T System](s *Scheduler) { setEnabled[T](s, false) }

// recomputeBatchesLocked partitions every non-Manual system into
// conflict-free batches by greedy first-fit (spec.md section 4.9). Must
// be called with s.mu held for writing.
func (s *Scheduler) recomputeBatchesLocked() {
	var batches [][]*systemRecord

	for _, r := range s.systems {
		if r.sys.Rate() == RateManual {
			continue
		}
		placed := false
		for i, batch := range batches {
			if !conflictsWithBatch(r, batch) {
				batches[i] = append(batch, r)
				placed = true
				break
			}
		}
		if !placed {
			batches = append(batches, []*systemRecord{r})
		}
	}

	s.batches = batches
}

func conflictsWithBatch(r *systemRecord, batch []*systemRecord) bool {
	rReads, rWrites := r.readSig(), r.writeSig()
	for _, other := range batch {
		oReads, oWrites := other.readSig(), other.writeSig()
		if rWrites.ContainsAny(oWrites) || rWrites.ContainsAny(oReads) || oWrites.ContainsAny(rReads) {
			return true
		}
	}
	return false
}

// RunBatches executes every batch in sequence, dispatching the systems
// within a batch in parallel and gating each by its tick rate. Manual
// systems never run here; invoke them directly via RunManual.
func (s *Scheduler) RunBatches(w *World, deltaSeconds float64) {
	s.mu.RLock()
	batches := make([][]*systemRecord, len(s.batches))
	copy(batches, s.batches)
	s.mu.RUnlock()

	deltaMS := deltaSeconds * 1000
	limit := runtime.GOMAXPROCS(0)

	for _, batch := range batches {
		var g errgroup.Group
		g.SetLimit(limit)
		for _, rec := range batch {
			rec := rec
			if !rec.enabled {
				continue
			}
			due := rec.sys.Rate() == RateEveryFrame
			if !due {
				rec.accumulator += deltaMS
				interval := rec.sys.Rate().intervalMS()
				if interval > 0 && rec.accumulator >= interval {
					rec.accumulator -= interval
					due = true
				}
			}
			if !due {
				continue
			}
			g.Go(func() error {
				runSystemSafely(rec, w, deltaSeconds, s.warnThresholdMS)
				return nil
			})
		}
		_ = g.Wait()
	}
}

// RunManual invokes the registered system of concrete type T directly,
// bypassing batch membership and tick-rate gating entirely (spec.md
// section 4.9: "excluded from batches entirely; they run only when
// explicitly invoked").
func RunManual[T System](s *Scheduler, w *World, delta float64) error {
	sys, ok := GetSystem[T](s)
	if !ok {
		var zero T
		return fmt.Errorf("system %T not registered", zero)
	}
	return sys.Update(w, delta)
}

// runSystemSafely wraps one system's Update in a stopwatch feeding its
// EMA, and recovers a panic into a SystemUpdateFailureError — a system
// failure is captured, logged, and never aborts its batch (spec.md
// section 4.9/7).
func runSystemSafely(rec *systemRecord, w *World, deltaSeconds, warnThresholdMS float64) {
	start := time.Now()
	var failure error

	func() {
		defer func() {
			if p := recover(); p != nil {
				failure = SystemUpdateFailureError{System: rec.sys.Name(), Cause: fmt.Errorf("panic: %v", p)}
			}
		}()
		if err := rec.sys.Update(w, deltaSeconds); err != nil {
			failure = SystemUpdateFailureError{System: rec.sys.Name(), Cause: err}
		}
	}()

	rec.stats.record(time.Since(start))

	if failure != nil {
		log.Print(bark.AddTrace(failure))
	}
	if rec.stats.exceedsWarnThreshold(warnThresholdMS) {
		ema, peak, _, _ := rec.stats.Snapshot()
		log.Printf("system %s EMA %.3fms exceeds warn threshold %.3fms (peak %.3fms)", rec.sys.Name(), ema, warnThresholdMS, peak)
	}
}
