package jobs

// Tracker is the write handle a worker uses to report progress into its own
// run. All writers (concurrent adapters included) funnel through the
// orchestrator mutex, so processed counts stay monotonic and Status readers
// always see a coherent struct.
//
// Tracker satisfies scraper.Report and merge.Reporter.
type Tracker struct {
	o    *Orchestrator
	slot *slot
}

// Item records one processed unit of work and its label.
func (t *Tracker) Item(label string) {
	t.o.mu.Lock()
	defer t.o.mu.Unlock()
	t.slot.run.Progress.Processed++
	t.slot.run.Progress.CurrentItem = label
}

// AddTotal grows the known total. The total stays nil until the first
// adapter has finished listing its pages.
func (t *Tracker) AddTotal(n int) {
	t.o.mu.Lock()
	defer t.o.mu.Unlock()
	p := &t.slot.run.Progress
	if p.Total == nil {
		total := n
		p.Total = &total
		return
	}
	*p.Total += n
}

// SoftError records a per-item failure without aborting the run.
func (t *Tracker) SoftError(item, msg string) {
	t.o.mu.Lock()
	defer t.o.mu.Unlock()
	p := &t.slot.run.Progress
	p.Errors = append(p.Errors, ItemError{Item: item, Message: msg})
}

// SetSummary sets the terminal summary line shown once the run finishes.
func (t *Tracker) SetSummary(s string) {
	t.o.mu.Lock()
	defer t.o.mu.Unlock()
	t.slot.run.Summary = s
}

// ErrorCount returns the number of soft errors recorded so far.
func (t *Tracker) ErrorCount() int {
	t.o.mu.Lock()
	defer t.o.mu.Unlock()
	return len(t.slot.run.Progress.Errors)
}
