package handle

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/wippyai/gpubind/errors"
	"go.uber.org/zap"
)

// Handle is an opaque native object handle. It is compared by identity
// and never dereferenced.
type Handle uint64

// Null is the null handle.
const Null Handle = 0

func (h Handle) String() string {
	return fmt.Sprintf("%#x", uint64(h))
}

// DestroyFunc destroys a native object.
type DestroyFunc func(Handle) error

// Options describe a new owned or borrowed object.
type Options struct {
	// Parent is a reference the object holds on its parent. It is released
	// after the object is destroyed. The Ref passed here is consumed.
	Parent *Ref

	// Destroy is the native destroy call. Ignored for borrowed objects.
	Destroy DestroyFunc

	Tracker    *Tracker
	ObjectType string

	// Borrowed marks handles the layer must never destroy.
	Borrowed bool

	// NotDestroyable makes Destroy always fail with an unsupported error.
	// Release still destroys on the last reference.
	NotDestroyable bool
}

type state struct {
	parent      *Ref
	destroy     DestroyFunc
	tracker     *Tracker
	objectType  string
	handle      Handle
	trackerID   uint32
	count       atomic.Int64
	finalized   atomic.Bool
	owns        bool
	destroyable bool
}

// Ref is one reference to a shared native object.
type Ref struct {
	st       *state
	cleanup  runtime.Cleanup
	released atomic.Bool
}

// New wraps h in an owned object with a reference count of one.
func New(h Handle, opts Options) *Ref {
	st := &state{
		parent:      opts.Parent,
		destroy:     opts.Destroy,
		tracker:     opts.Tracker,
		objectType:  opts.ObjectType,
		handle:      h,
		owns:        !opts.Borrowed,
		destroyable: !opts.NotDestroyable,
	}
	st.count.Store(1)
	if st.tracker != nil {
		st.trackerID = st.tracker.add(st)
	}
	return newRef(st)
}

// Borrowed wraps a handle the layer does not own.
func Borrowed(h Handle, objectType string, parent *Ref) *Ref {
	return New(h, Options{ObjectType: objectType, Parent: parent, Borrowed: true})
}

func newRef(st *state) *Ref {
	r := &Ref{st: st}
	r.cleanup = runtime.AddCleanup(r, leaked, st)
	return r
}

// leaked runs when a Ref is collected without Release.
func leaked(st *state) {
	Logger().Warn("handle reference leaked; releasing",
		zap.String("type", st.objectType),
		zap.Stringer("handle", st.handle))
	if err := st.release(); err != nil {
		Logger().Error("destroy of leaked handle failed",
			zap.String("type", st.objectType),
			zap.Stringer("handle", st.handle),
			zap.Error(err))
	}
}

// Handle returns the native handle, or Null once this reference is released.
func (r *Ref) Handle() Handle {
	if r == nil || r.released.Load() {
		return Null
	}
	return r.st.handle
}

// Get returns the native handle or an error if this reference is released.
func (r *Ref) Get() (Handle, error) {
	if r == nil {
		return Null, errors.NilPointer(errors.PhaseOwnership, nil, "*handle.Ref")
	}
	if r.released.Load() {
		return Null, errors.Released(r.st.objectType)
	}
	return r.st.handle, nil
}

func (r *Ref) ObjectType() string { return r.st.objectType }

// Count is the current number of live references to the object.
func (r *Ref) Count() int64 { return r.st.count.Load() }

// Owned reports whether the layer destroys this object.
func (r *Ref) Owned() bool { return r.st.owns }

// Released reports whether this reference has been released or destroyed.
func (r *Ref) Released() bool { return r.released.Load() }

// Clone returns a new reference to the same object.
func (r *Ref) Clone() (*Ref, error) {
	if r == nil {
		return nil, errors.NilPointer(errors.PhaseOwnership, nil, "*handle.Ref")
	}
	if r.released.Load() {
		return nil, errors.Released(r.st.objectType)
	}
	r.st.count.Add(1)
	return newRef(r.st), nil
}

// MustClone is Clone for references known to be live.
func (r *Ref) MustClone() *Ref {
	c, err := r.Clone()
	if err != nil {
		panic(err)
	}
	return c
}

// Release drops this reference. The last release destroys the object and
// returns the destroy error, if any. Releasing twice is a no-op.
func (r *Ref) Release() error {
	if r == nil || !r.released.CompareAndSwap(false, true) {
		return nil
	}
	r.cleanup.Stop()
	return r.st.release()
}

// Destroy destroys the object if this is its only reference. Otherwise
// it returns *errors.InUseError and leaves the object and every reference,
// including r, untouched.
// A Destroy refused for live references never marks r, so a Release of
// r racing with it still takes effect.
func (r *Ref) Destroy() error {
	if r == nil {
		return errors.NilPointer(errors.PhaseOwnership, nil, "*handle.Ref")
	}
	st := r.st
	if !st.destroyable {
		st.notify(EventDestroyRefused, st.count.Load())
		return errors.Unsupported(errors.PhaseOwnership,
			fmt.Sprintf("%s cannot be destroyed independently", st.objectType))
	}
	if r.released.Load() {
		return errors.Released(st.objectType)
	}
	if n := st.count.Load(); n != 1 {
		return st.refuse(n)
	}
	if !r.released.CompareAndSwap(false, true) {
		return errors.Released(st.objectType)
	}
	// A clone taken through another reference since the check above.
	if !st.count.CompareAndSwap(1, 0) {
		r.released.Store(false)
		return st.refuse(st.count.Load())
	}
	r.cleanup.Stop()
	return st.finalize()
}

func (st *state) refuse(n int64) error {
	st.notify(EventDestroyRefused, n)
	return &errors.InUseError{ObjectType: st.objectType, Handle: uint64(st.handle), Count: n}
}

func (st *state) release() error {
	switch n := st.count.Add(-1); {
	case n > 0:
		return nil
	case n < 0:
		Logger().Error("handle reference count underflow",
			zap.String("type", st.objectType),
			zap.Stringer("handle", st.handle),
			zap.Int64("count", n))
		return nil
	}
	return st.finalize()
}

func (st *state) finalize() error {
	if !st.finalized.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if st.owns && st.destroy != nil {
		err = st.destroy(st.handle)
	}
	st.notify(EventDestroyed, 0)
	if st.tracker != nil {
		st.tracker.remove(st.trackerID)
	}

	if st.parent != nil {
		if perr := st.parent.Release(); err == nil {
			err = perr
		}
	}
	return err
}

func (st *state) notify(t EventType, count int64) {
	if st.tracker == nil {
		return
	}
	st.tracker.notify(Event{
		Type:       t,
		Handle:     st.handle,
		ObjectType: st.objectType,
		Count:      count,
		Owned:      st.owns,
	})
}
