package futures

// Void is the value type of futures that carry no payload.
type Void struct{}

// Tuple2 is a heterogeneous pair. Continuations attached to a future of a
// tuple may take the elements as separate arguments (tuple explosion).
type Tuple2[A, B any] struct {
	First  A
	Second B
}

// Tuple3 is a heterogeneous triple.
type Tuple3[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// MakeTuple2 packs two values.
func MakeTuple2[A, B any](a A, b B) Tuple2[A, B] { return Tuple2[A, B]{First: a, Second: b} }

// MakeTuple3 packs three values.
func MakeTuple3[A, B, C any](a A, b B, c C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{First: a, Second: b, Third: c}
}

// isTuple marks the tuple types for the continuation dispatcher.
func (Tuple2[A, B]) isTuple()    {}
func (Tuple3[A, B, C]) isTuple() {}

type tupleMarker interface{ isTuple() }
