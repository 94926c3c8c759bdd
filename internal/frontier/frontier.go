package frontier

import "sync"

/*
Frontier Responsibilities
- Admit wished item ids in the order they were first seen
- Deduplicate ids that appear on several wishlist pages
- Knows nothing about:
	- fetching
	- translation
	- workbook output

It is a data structure + policy module, not a pipeline executor.
*/

// Admission is one admitted item id and the wishlist page it was first seen on.
type Admission struct {
	ItemID string
	Page   int
}

type Frontier struct {
	mu         sync.Mutex
	seen       Set[string]
	queue      *FIFOQueue[Admission]
	duplicates int
}

func NewFrontier() *Frontier {
	return &Frontier{
		seen:  NewSet[string](),
		queue: NewFIFOQueue[Admission](),
	}
}

// Submit admits itemID unless it was seen before. Empty ids are ignored.
func (f *Frontier) Submit(itemID string, page int) bool {
	if itemID == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.seen.Add(itemID) {
		f.duplicates++
		return false
	}
	f.queue.Enqueue(Admission{ItemID: itemID, Page: page})
	return true
}

func (f *Frontier) Dequeue() (Admission, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Dequeue()
}

// Drain dequeues every pending admission in order.
func (f *Frontier) Drain() []Admission {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Admission, 0, f.queue.Size())
	for {
		next, ok := f.queue.Dequeue()
		if !ok {
			return out
		}
		out = append(out, next)
	}
}

func (f *Frontier) Seen(itemID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Contains(itemID)
}

func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queue.Size()
}

// Admitted counts distinct ids ever admitted, drained or not.
func (f *Frontier) Admitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen.Size()
}

func (f *Frontier) Duplicates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duplicates
}
