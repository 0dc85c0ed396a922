package shell

// Batch is the merged result of every request queued since the last frame.
type Batch struct {
	Redraw bool
	Update bool
	Close  bool

	// Title is the most recent requested title, empty if none.
	Title string

	// Count is the number of requests merged.
	Count int
}

// Empty reports whether the batch carries no requests.
func (b Batch) Empty() bool {
	return b.Count == 0
}

// Add merges a single request into the batch.
func (b *Batch) Add(req Request) {
	b.Count++
	switch req.Kind {
	case KindRedraw:
		b.Redraw = true
	case KindUpdate:
		b.Update = true
	case KindChangeTitle:
		b.Title = req.Title
	case KindClose:
		b.Close = true
	}
}

// Drain merges everything currently queued on reqs without blocking.
func (b *Batch) Drain(reqs <-chan Request) {
	for {
		select {
		case req := <-reqs:
			b.Add(req)
		default:
			return
		}
	}
}

// Coalesce drains everything currently queued without blocking.
func Coalesce(reqs <-chan Request) Batch {
	var b Batch
	b.Drain(reqs)
	return b
}

// CoalesceWith merges first with everything else currently queued.
// The host loop uses it after a blocking receive.
func CoalesceWith(first Request, reqs <-chan Request) Batch {
	var b Batch
	b.Add(first)
	b.Drain(reqs)
	return b
}
