package vk

import (
	gpubind "github.com/wippyai/gpubind"
	"github.com/wippyai/gpubind/abi"
	"github.com/wippyai/gpubind/dispatch"
	"github.com/wippyai/gpubind/enumerate"
	"github.com/wippyai/gpubind/handle"
	"github.com/wippyai/gpubind/layout"
	"github.com/wippyai/gpubind/marshal"
	"go.uber.org/zap"
)

// Options configure an instance and everything created from it.
type Options struct {
	// Logger overrides the package logger for this instance.
	Logger *zap.Logger

	// Tracker, if set, records every object created from the instance.
	Tracker *handle.Tracker

	// AllocationCallbacks are passed to every create and destroy call.
	AllocationCallbacks *AllocationCallbacks

	// EnumerateAttempts bounds count/fill restarts of enumerations.
	EnumerateAttempts int
}

// DefaultOptions returns options with no tracker and no host allocator.
func DefaultOptions() Options {
	return Options{
		EnumerateAttempts: enumerate.DefaultMaxAttempts,
	}
}

// AllocationCallbacks are host memory callbacks, given as native
// function pointers in the loader's address space.
type AllocationCallbacks struct {
	UserData           uint64
	Allocation         uint64
	Reallocation       uint64
	Free               uint64
	InternalAllocation uint64
	InternalFree       uint64
}

func (a *AllocationCallbacks) Schema() *layout.Struct { return abi.AllocationCallbacks }

func (a *AllocationCallbacks) Lower(_ *marshal.Scope, w *marshal.Writer) error {
	w.Ptr("pUserData", a.UserData)
	w.Ptr("pfnAllocation", a.Allocation)
	w.Ptr("pfnReallocation", a.Reallocation)
	w.Ptr("pfnFree", a.Free)
	w.Ptr("pfnInternalAllocation", a.InternalAllocation)
	w.Ptr("pfnInternalFree", a.InternalFree)
	return nil
}

// env is shared by an instance and every object created from it.
type env struct {
	loader dispatch.Loader
	space  gpubind.Space
	opts   Options
	log    *zap.Logger
}

func newEnv(loader dispatch.Loader, opts Options) *env {
	log := opts.Logger
	if log == nil {
		log = Logger()
	}
	return &env{loader: loader, space: loader.Space(), opts: opts, log: log}
}

func (e *env) scope() *marshal.Scope {
	return marshal.NewScope(e.space)
}

// allocator lowers the configured callbacks, or returns null.
func (e *env) allocator(s *marshal.Scope) (uint64, error) {
	p, err := marshal.ConvertOptional(s, e.opts.AllocationCallbacks)
	return p.Addr(), err
}

// destroyCall runs a native destroy with the configured callbacks.
func (e *env) destroyCall(call func(pAllocator uint64)) error {
	s := e.scope()
	defer s.Close()
	pAllocator, err := e.allocator(s)
	if err != nil {
		return err
	}
	call(pAllocator)
	return nil
}

func (e *env) query(name string, call enumerate.Func) enumerate.Query {
	return enumerate.Query{
		Space:       e.space,
		Call:        call,
		Logger:      e.log,
		Name:        name,
		MaxAttempts: e.opts.EnumerateAttempts,
	}
}

// wrap wraps a new handle and logs it.
func (e *env) wrap(h uint64, opts handle.Options) *handle.Ref {
	opts.Tracker = e.opts.Tracker
	ref := handle.New(handle.Handle(h), opts)
	e.log.Debug("object created",
		zap.String("type", opts.ObjectType),
		zap.Stringer("handle", handle.Handle(h)),
		zap.Bool("owned", !opts.Borrowed))
	return ref
}
