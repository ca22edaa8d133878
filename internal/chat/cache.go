package chat

import "sync"

// ReplyCache memoizes answers per exact question text with LRU eviction, so
// repeated widget questions skip the completion call.
type ReplyCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]string
	order   []string
}

func NewReplyCache(max int) *ReplyCache {
	if max <= 0 {
		max = 128
	}
	return &ReplyCache{
		max:     max,
		entries: make(map[string]string),
	}
}

func (c *ReplyCache) Get(question string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	answer, ok := c.entries[question]
	if ok {
		c.touch(question)
	}
	return answer, ok
}

func (c *ReplyCache) Put(question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[question]; exists {
		c.entries[question] = answer
		c.touch(question)
		return
	}

	c.entries[question] = answer
	c.order = append(c.order, question)
	for len(c.order) > c.max {
		evict := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, evict)
	}
}

// touch moves a key to the most-recently-used end. Caller holds the lock.
func (c *ReplyCache) touch(question string) {
	for i, key := range c.order {
		if key == question {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, question)
}
