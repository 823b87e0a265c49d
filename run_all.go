package futures

// AsyncAll submits every fn (any shape accepted by Async) and returns the
// conjunction over the resulting futures. It owns nothing beyond what Async
// creates; waiting and teardown follow the proxy's usual rules.
func AsyncAll[T any](fns []any, opts ...Option) *WhenAllFuture[T] {
	leaves := make([]*Future[T], len(fns))
	for i, fn := range fns {
		leaves[i] = Async[T](fn, opts...)
	}
	return WhenAll(leaves...)
}

// AsyncAny submits every fn and returns the disjunction over the resulting
// futures: ready as soon as the first task completes.
func AsyncAny[T any](fns []any, opts ...Option) *WhenAnyFuture[T] {
	leaves := make([]*Future[T], len(fns))
	for i, fn := range fns {
		leaves[i] = Async[T](fn, opts...)
	}
	return WhenAny(leaves...)
}
