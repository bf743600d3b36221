package models

// Notice is one entry of the notice board, as scraped from the list page.
// Never persisted; the article number is the only ordering signal.
type Notice struct {
	ID         int64
	Title      string
	URL        string
	Category   string
	Department string
	PostedAt   string
}

// Notices holds one page of the board, newest-first.
type Notices []Notice

func (ns Notices) LatestID() int64 {
	if len(ns) == 0 {
		return 0
	}
	return ns[0].ID
}

// After returns the notices newer than the watermark, reordered
// oldest-to-newest so they can be delivered in publication order.
func (ns Notices) After(watermark int64) Notices {
	delta := make(Notices, 0, len(ns))
	for i := len(ns) - 1; i >= 0; i-- {
		if ns[i].ID > watermark {
			delta = append(delta, ns[i])
		}
	}
	return delta
}
