// Package futures provides composable primitives for asynchronous
// computations: futures, promises, continuations, and combinators for
// conjunctions (wait-all) and disjunctions (wait-any).
//
// Entry points
//   - Async[T](fn, opts...): submit fn to an executor, get a continuable
//     future. If fn accepts a StopToken, the future is also stoppable.
//   - Schedule[T](fn, opts...): like Async, but deferred; fn is launched on
//     the first wait.
//   - MakeReadyFuture / MakeExceptionalFuture: wrap an existing value or
//     error.
//   - NewPromise / NewPackagedTask: producer-side handles for code that
//     fulfills a future manually.
//
// Continuations
// Then and ThenOn attach a continuation to a future and return a new future
// for the continuation's result. The continuation signature decides how the
// parent value is delivered: directly, through a pointer view, unwrapped from
// a nested future, exploded from a tuple, or collected from a sequence of
// futures. See Then for the full rule set.
//
// Combinators
// WhenAll and WhenAny build proxy futures over a set of leaves. The proxies
// do not allocate a result cell for the combination itself; readiness is
// derived from the leaves. Merge methods (And, Or) flatten nested
// combinations instead of nesting them.
//
// Lifecycle
// Handles are explicit about teardown: Future.Join waits for the underlying
// computation unless Detach was called, Promise.Close stores a broken-promise
// error if no result was set, and WhenAnyFuture.Close cancels and joins its
// notifiers.
//
// Executors
// All scheduling goes through the executor.Executor contract. The default is
// a process-wide pool sized by the number of CPUs; see the executor package.
package futures
