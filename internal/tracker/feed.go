package tracker

// DefaultFeedCapacity is how many notifications a Tracker keeps.
const DefaultFeedCapacity = 5

// Feed is a bounded, most-recent-first list of notifications. Entries pushed
// out by newer ones are gone for good.
type Feed struct {
	capacity int
	items    []Notification
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed{capacity: capacity, items: make([]Notification, 0, capacity+1)}
}

func (f *Feed) Push(n Notification) {
	f.items = append(f.items, Notification{})
	copy(f.items[1:], f.items)
	f.items[0] = n
	if len(f.items) > f.capacity {
		f.items = f.items[:f.capacity]
	}
}

// List returns a copy, newest first.
func (f *Feed) List() []Notification {
	out := make([]Notification, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed) Len() int { return len(f.items) }
