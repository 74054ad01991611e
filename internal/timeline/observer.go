package timeline

// Observer receives store lifecycle signals.
//
// Observers are called synchronously after a mutation commits and before
// listeners run. They must not call back into the store.
type Observer interface {
	// Appended is called after an event is committed at position; length is
	// the resulting log length.
	Appended(position, length int)

	// Moved is called after the cursor changes without an append.
	Moved(move CursorMove)

	// Compacted is called after retention drops the oldest events.
	Compacted(dropped, remaining int)

	// ReducerFailed is called when the reducer panics during Append.
	ReducerFailed(err error)
}

// NopObserver ignores every signal.
type NopObserver struct{}

func (NopObserver) Appended(int, int)   {}
func (NopObserver) Moved(CursorMove)    {}
func (NopObserver) Compacted(int, int)  {}
func (NopObserver) ReducerFailed(error) {}
