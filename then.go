package futures

import (
	"reflect"

	"github.com/ygrebnov/futures/executor"
)

// Then attaches fn as a continuation of parent and returns a future for fn's
// result, scheduled through the parent's executor. A unique parent handle is
// consumed; shared parents stay observable.
//
// The delivery of the parent value to fn is decided by the first matching
// rule, in priority order:
//
//  1. Void: parent is Future[Void], fn takes no value.
//  2. Direct: fn(T).
//  3. Pointer view: fn(*T).
//  4. Double unwrap: T = *Future[W], fn(W).
//  5. Tuple explode: T = Tuple2/Tuple3, fn(elements...).
//  6. Tuple of futures: tuple elements are futures, fn(values...).
//  7. Sequence of futures: T = []*Future[W], fn([]W).
//  8. Wait-any result: T = AnyResult/AnyResult2, fn(index, ...), fn(index,
//     sequence), fn(chosen future), or fn(chosen value).
//
// Every rule also admits a trailing error return, and a leading StopToken
// parameter; a continuation taking a token gets a fresh stop source on the
// returned future. A fn matching no rule is a programmer error: Then panics
// with ErrInvalidContinuation at attach time.
//
// If the parent holds an error, fn is skipped and the error propagates to the
// returned future.
func Then[U, T any](parent *Future[T], fn any) *Future[U] {
	return ThenOn[U](nil, parent, fn)
}

// ThenOn is Then with an explicit executor for the continuation; ex == nil
// selects the parent's executor.
func ThenOn[U, T any](ex executor.Executor, parent *Future[T], fn any) *Future[U] {
	if !parent.Valid() {
		panic(ErrNoState)
	}
	inv := resolveInvoker[T, U](fn)

	pcfg := parent.st.cfg
	ccfg := childConfig(pcfg, ex)
	cex := ccfg.executor

	cfl := flagContinuable
	var cs *state[U]
	var token StopToken
	childStop := StopSource{}
	if inv.wantsToken {
		childStop = NewStopSource()
		token = childStop.Token()
		cfl |= flagStoppable
	} else if parent.st.stop.valid() && !parent.shared() {
		childStop = parent.st.stop.share()
		cfl |= flagStoppable
	}

	pst := parent.st
	parentDeferred := parent.fl&flagDeferred != 0
	if !parent.shared() {
		parent.release()
	}

	ccfg.instruments.continuations.Add(1)

	if parentDeferred {
		cs = newState[U](ccfg, phaseDeferred)
		cfl |= flagDeferred
	} else {
		cs = newState[U](ccfg, phaseLaunched)
	}
	cs.conts = &continuationList{}
	cs.stop = childStop

	trampoline := func() {
		pst.wait()
		if pst.err != nil {
			_ = cs.setError(pst.err)
			return
		}
		v := pst.value
		cs.apply(func() (U, error) { return inv.call(v, token) })
	}

	switch {
	case parentDeferred:
		// Deferred continuation: launch on first wait, after the parent.
		cs.parentWait = pst.wait
		cs.task = trampoline
	case pst.conts != nil:
		// Lazily continuable parent: fire without polling once it completes.
		// The emplaced callback only posts; the continuation body runs on the
		// executor either way.
		pst.conts.emplace(cex, func() { cex.Post(trampoline) })
	default:
		// Non-continuable parent: poll through the executor.
		cex.Defer(trampoline)
	}

	return newFuture(cs, cfl)
}

// childConfig derives a continuation's config from the parent's, overriding
// the executor when one was given explicitly.
func childConfig(parent *config, ex executor.Executor) *config {
	cfg := config{}
	if parent != nil {
		cfg = *parent
	}
	if ex != nil {
		cfg.executor = ex
	}
	_ = validateConfig(&cfg)
	return &cfg
}

// invoker is a resolved continuation: call delivers the parent value to the
// user function according to the selected unwrapping rule.
type invoker[T, U any] struct {
	call       func(T, StopToken) (U, error)
	wantsToken bool
}

// resolveInvoker selects the unwrapping rule for fn against parent value type
// T. Rules 1-3 resolve through a type switch; the structured rules resolve
// through reflection, once, at attach time.
func resolveInvoker[T, U any](fn any) invoker[T, U] {
	// Rules 1-3, plus their token- and error-returning variants.
	switch f := fn.(type) {
	case func() (U, error):
		if isVoid[T]() {
			return invoker[T, U]{call: func(T, StopToken) (U, error) { return f() }}
		}
	case func() U:
		if isVoid[T]() {
			return invoker[T, U]{call: func(T, StopToken) (U, error) { return f(), nil }}
		}
	case func(StopToken) (U, error):
		if isVoid[T]() {
			return invoker[T, U]{call: func(_ T, t StopToken) (U, error) { return f(t) }, wantsToken: true}
		}
	case func(StopToken) U:
		if isVoid[T]() {
			return invoker[T, U]{call: func(_ T, t StopToken) (U, error) { return f(t), nil }, wantsToken: true}
		}
	case func(T) (U, error):
		return invoker[T, U]{call: func(v T, _ StopToken) (U, error) { return f(v) }}
	case func(T) U:
		return invoker[T, U]{call: func(v T, _ StopToken) (U, error) { return f(v), nil }}
	case func(StopToken, T) (U, error):
		return invoker[T, U]{call: func(v T, t StopToken) (U, error) { return f(t, v) }, wantsToken: true}
	case func(StopToken, T) U:
		return invoker[T, U]{call: func(v T, t StopToken) (U, error) { return f(t, v), nil }, wantsToken: true}
	case func(*T) (U, error):
		return invoker[T, U]{call: func(v T, _ StopToken) (U, error) { return f(&v) }}
	case func(*T) U:
		return invoker[T, U]{call: func(v T, _ StopToken) (U, error) { return f(&v), nil }}
	case func(StopToken, *T) (U, error):
		return invoker[T, U]{call: func(v T, t StopToken) (U, error) { return f(t, &v) }, wantsToken: true}
	case func(StopToken, *T) U:
		return invoker[T, U]{call: func(v T, t StopToken) (U, error) { return f(t, &v), nil }, wantsToken: true}
	}

	if inv, ok := resolveStructured[T, U](fn); ok {
		return inv
	}
	panic(ErrInvalidContinuation)
}

var (
	anyFutureReflectType = reflect.TypeOf((*anyFuture)(nil)).Elem()
	tupleReflectType     = reflect.TypeOf((*tupleMarker)(nil)).Elem()
	anyResultReflectType = reflect.TypeOf((*anyResultMarker)(nil)).Elem()
	errorReflectType     = reflect.TypeOf((*error)(nil)).Elem()
	stopTokenReflectType = reflect.TypeOf(StopToken{})
)

// resolveStructured handles the rules that look inside T: nested futures,
// tuples, sequences of futures, and wait-any results.
func resolveStructured[T, U any](fn any) (invoker[T, U], bool) {
	sig, ok := newFuncSig[U](fn)
	if !ok {
		return invoker[T, U]{}, false
	}
	tt := reflect.TypeOf((*T)(nil)).Elem()

	// Rule 4: double unwrap.
	if w, ok := futureValueType(tt); ok && sig.params(w) {
		return makeInvoker[T, U](sig, func(v T) ([]reflect.Value, error) {
			raw, err := any(v).(anyFuture).getAny()
			if err != nil {
				return nil, err
			}
			return []reflect.Value{valueOr(raw, w)}, nil
		}), true
	}

	// Rules 5 and 6: tuples, of values or of futures.
	if tt.Implements(tupleReflectType) && tt.Kind() == reflect.Struct {
		fields := make([]reflect.Type, tt.NumField())
		for i := range fields {
			fields[i] = tt.Field(i).Type
		}
		if sig.params(fields...) {
			return makeInvoker[T, U](sig, func(v T) ([]reflect.Value, error) {
				rv := reflect.ValueOf(v)
				args := make([]reflect.Value, rv.NumField())
				for i := range args {
					args[i] = rv.Field(i)
				}
				return args, nil
			}), true
		}
		inner := make([]reflect.Type, len(fields))
		allFutures := true
		for i, ft := range fields {
			w, ok := futureValueType(ft)
			if !ok {
				allFutures = false
				break
			}
			inner[i] = w
		}
		if allFutures && sig.params(inner...) {
			return makeInvoker[T, U](sig, func(v T) ([]reflect.Value, error) {
				rv := reflect.ValueOf(v)
				args := make([]reflect.Value, rv.NumField())
				for i := range args {
					raw, err := rv.Field(i).Interface().(anyFuture).getAny()
					if err != nil {
						return nil, err
					}
					args[i] = valueOr(raw, inner[i])
				}
				return args, nil
			}), true
		}
	}

	// Rule 7: sequence of futures.
	if tt.Kind() == reflect.Slice {
		if w, ok := futureValueType(tt.Elem()); ok && sig.params(reflect.SliceOf(w)) {
			return makeInvoker[T, U](sig, func(v T) ([]reflect.Value, error) {
				rv := reflect.ValueOf(v)
				out := reflect.MakeSlice(reflect.SliceOf(w), rv.Len(), rv.Len())
				for i := 0; i < rv.Len(); i++ {
					raw, err := rv.Index(i).Interface().(anyFuture).getAny()
					if err != nil {
						return nil, err
					}
					out.Index(i).Set(valueOr(raw, w))
				}
				return []reflect.Value{out}, nil
			}), true
		}
	}

	// Rule 8: wait-any results.
	if tt.Implements(anyResultReflectType) {
		return resolveAnyResult[T, U](sig, tt)
	}

	return invoker[T, U]{}, false
}

// resolveAnyResult matches the four wait-any continuation forms: explode,
// split, chosen future, chosen value.
func resolveAnyResult[T, U any](sig funcSig[U], tt reflect.Type) (invoker[T, U], bool) {
	intType := reflect.TypeOf(int(0))

	// Leaf layout: AnyResult carries Index plus either one slice field or a
	// run of future fields.
	var leafTypes []reflect.Type
	var seqType reflect.Type
	for i := 0; i < tt.NumField(); i++ {
		f := tt.Field(i)
		if f.Name == "Index" {
			continue
		}
		if f.Type.Kind() == reflect.Slice {
			seqType = f.Type
		} else {
			leafTypes = append(leafTypes, f.Type)
		}
	}

	// Explode: fn(index, leaf futures...).
	if len(leafTypes) > 0 && sig.params(append([]reflect.Type{intType}, leafTypes...)...) {
		return makeInvoker[T, U](sig, func(v T) ([]reflect.Value, error) {
			m := any(v).(anyResultMarker)
			rv := reflect.ValueOf(v)
			args := []reflect.Value{reflect.ValueOf(m.anyIndex())}
			for i := 0; i < rv.NumField(); i++ {
				if tt.Field(i).Name == "Index" {
					continue
				}
				args = append(args, rv.Field(i))
			}
			return args, nil
		}), true
	}

	// Split: fn(index, sequence).
	if seqType != nil && sig.params(intType, seqType) {
		return makeInvoker[T, U](sig, func(v T) ([]reflect.Value, error) {
			m := any(v).(anyResultMarker)
			rv := reflect.ValueOf(v)
			var seq reflect.Value
			for i := 0; i < rv.NumField(); i++ {
				if rv.Field(i).Kind() == reflect.Slice {
					seq = rv.Field(i)
				}
			}
			return []reflect.Value{reflect.ValueOf(m.anyIndex()), seq}, nil
		}), true
	}

	// Chosen forms require all leaves to share one future type.
	chosenType := seqType
	if chosenType != nil {
		chosenType = seqType.Elem()
	} else if len(leafTypes) > 0 {
		chosenType = leafTypes[0]
		for _, lt := range leafTypes[1:] {
			if lt != chosenType {
				chosenType = nil
				break
			}
		}
	}
	if chosenType == nil {
		return invoker[T, U]{}, false
	}
	w, ok := futureValueType(chosenType)
	if !ok {
		return invoker[T, U]{}, false
	}

	// Chosen future: fn(*Future[W]).
	if sig.params(chosenType) {
		return makeInvoker[T, U](sig, func(v T) ([]reflect.Value, error) {
			chosen, err := chosenLeaf(v)
			if err != nil {
				return nil, err
			}
			return []reflect.Value{reflect.ValueOf(chosen)}, nil
		}), true
	}

	// Chosen value: fn(W).
	if sig.params(w) {
		return makeInvoker[T, U](sig, func(v T) ([]reflect.Value, error) {
			chosen, err := chosenLeaf(v)
			if err != nil {
				return nil, err
			}
			raw, err := chosen.getAny()
			if err != nil {
				return nil, err
			}
			return []reflect.Value{valueOr(raw, w)}, nil
		}), true
	}

	return invoker[T, U]{}, false
}

func chosenLeaf(v any) (anyFuture, error) {
	m := v.(anyResultMarker)
	idx := m.anyIndex()
	leaves := m.anyLeaves()
	if idx < 0 || idx >= len(leaves) {
		return nil, ErrNoState
	}
	return leaves[idx], nil
}

// funcSig is a reflected continuation signature: parameter list (minus an
// optional leading StopToken) and a U or (U, error) result.
type funcSig[U any] struct {
	fv         reflect.Value
	ft         reflect.Type
	wantsToken bool
	withErr    bool
}

func newFuncSig[U any](fn any) (funcSig[U], bool) {
	ft := reflect.TypeOf(fn)
	if ft == nil || ft.Kind() != reflect.Func || ft.IsVariadic() {
		return funcSig[U]{}, false
	}
	ut := reflect.TypeOf((*U)(nil)).Elem()
	var withErr bool
	switch ft.NumOut() {
	case 1:
		if ft.Out(0) != ut {
			return funcSig[U]{}, false
		}
	case 2:
		if ft.Out(0) != ut || ft.Out(1) != errorReflectType {
			return funcSig[U]{}, false
		}
		withErr = true
	default:
		return funcSig[U]{}, false
	}
	sig := funcSig[U]{fv: reflect.ValueOf(fn), ft: ft, withErr: withErr}
	if ft.NumIn() > 0 && ft.In(0) == stopTokenReflectType {
		sig.wantsToken = true
	}
	return sig, true
}

// params reports whether the signature's parameters (after the optional
// token) are exactly want.
func (s funcSig[U]) params(want ...reflect.Type) bool {
	off := 0
	if s.wantsToken {
		off = 1
	}
	if s.ft.NumIn()-off != len(want) {
		return false
	}
	for i, w := range want {
		if s.ft.In(i+off) != w {
			return false
		}
	}
	return true
}

// makeInvoker binds a resolved signature to an argument builder.
func makeInvoker[T, U any](sig funcSig[U], build func(T) ([]reflect.Value, error)) invoker[T, U] {
	return invoker[T, U]{
		wantsToken: sig.wantsToken,
		call: func(v T, tok StopToken) (U, error) {
			var zero U
			args, err := build(v)
			if err != nil {
				return zero, err
			}
			if sig.wantsToken {
				args = append([]reflect.Value{reflect.ValueOf(tok)}, args...)
			}
			out := sig.fv.Call(args)
			u, _ := out[0].Interface().(U)
			if sig.withErr && !out[1].IsNil() {
				return u, out[1].Interface().(error)
			}
			return u, nil
		},
	}
}

// futureValueType reports the value type W of a future type (a type
// implementing the internal leaf interface), via its Get method.
func futureValueType(t reflect.Type) (reflect.Type, bool) {
	if !t.Implements(anyFutureReflectType) {
		return nil, false
	}
	m, ok := t.MethodByName("Get")
	if !ok || m.Type.NumOut() != 2 {
		return nil, false
	}
	return m.Type.Out(0), true
}

// valueOr wraps raw as a reflect value of type t, substituting the zero value
// when raw is a nil interface.
func valueOr(raw any, t reflect.Type) reflect.Value {
	if raw == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(raw)
	if rv.Type() != t {
		if rv.Type().AssignableTo(t) {
			out := reflect.New(t).Elem()
			out.Set(rv)
			return out
		}
	}
	return rv
}
