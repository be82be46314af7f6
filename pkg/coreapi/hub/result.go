package hub

// Result wraps a single listener's outcome from DispatchWithResults.
type Result struct {
	// Listener is the registered name of the listener.
	Listener string

	// Value is the listener's return value. Nil when the listener failed.
	Value any

	// Err is the contained failure, if any.
	Err error
}

// Ok returns true if the listener completed without error.
func (r Result) Ok() bool {
	return r.Err == nil
}

// Results holds the per-listener outcomes of one dispatch, in invocation order.
type Results struct {
	ordered []Result
	byName  map[string]int
}

func newResults(capacity int) *Results {
	return &Results{
		ordered: make([]Result, 0, capacity),
		byName:  make(map[string]int, capacity),
	}
}

func (rs *Results) add(r Result) {
	rs.byName[r.Listener] = len(rs.ordered)
	rs.ordered = append(rs.ordered, r)
}

// All returns every result in invocation order.
func (rs *Results) All() []Result {
	return rs.ordered
}

// Len returns the number of listeners invoked.
func (rs *Results) Len() int {
	return len(rs.ordered)
}

// Get returns the result for a named listener.
// If several listeners share the name, the last one wins.
func (rs *Results) Get(name string) (Result, bool) {
	i, ok := rs.byName[name]
	if !ok {
		return Result{}, false
	}
	return rs.ordered[i], true
}

// Values returns every listener's value positionally, nil for failed listeners.
func (rs *Results) Values() []any {
	values := make([]any, len(rs.ordered))
	for i, r := range rs.ordered {
		values[i] = r.Value
	}
	return values
}

// Errs returns the contained failures, in invocation order.
// An empty slice means every listener succeeded.
func (rs *Results) Errs() []error {
	var errs []error
	for _, r := range rs.ordered {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
