package local

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

// expiry is embedded by every stored value.
type expiry struct {
	expireAt time.Time // zero = no expiry
}

func (e *expiry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

func (e *expiry) setTTL(ttl time.Duration) {
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	} else {
		e.expireAt = time.Time{}
	}
}

// entry holds a cached string value.
type entry struct {
	expiry
	data string
}

// ZEntry is one member of a sorted set with its score.
type ZEntry struct {
	Member string
	Score  float64
}

type zset struct {
	expiry
	entries []ZEntry // score descending, then member descending
}

type list struct {
	expiry
	data []string
}

// LocalCache is an in-process cache implementing the Cache interface.
// Keys share one namespace across value types, as in Redis.
type LocalCache struct {
	mu         sync.Mutex
	kv         map[string]*entry
	zsets      map[string]*zset
	lists      map[string]*list
	gcInterval time.Duration
	stopGC     chan struct{}
	closeOnce  sync.Once
}

// NewCache creates a LocalCache and starts the background GC goroutine.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		kv:         make(map[string]*entry),
		zsets:      make(map[string]*zset),
		lists:      make(map[string]*list),
		gcInterval: interval,
		stopGC:     make(chan struct{}),
	}
	go c.runGC()
	return c, nil
}

// Close stops the background GC goroutine.
func (c *LocalCache) Close() {
	c.closeOnce.Do(func() { close(c.stopGC) })
}

func (c *LocalCache) runGC() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			c.mu.Lock()
			c.sweep(now)
			c.mu.Unlock()
		case <-c.stopGC:
			return
		}
	}
}

func (c *LocalCache) sweep(now time.Time) {
	for k, e := range c.kv {
		if e.expired(now) {
			delete(c.kv, k)
		}
	}
	for k, z := range c.zsets {
		if z.expired(now) {
			delete(c.zsets, k)
		}
	}
	for k, l := range c.lists {
		if l.expired(now) {
			delete(c.lists, k)
		}
	}
}

// liveEntry returns the KV entry if present and unexpired. Caller holds mu.
func (c *LocalCache) liveEntry(key string) *entry {
	e, ok := c.kv[key]
	if !ok {
		return nil
	}
	if e.expired(time.Now()) {
		delete(c.kv, key)
		return nil
	}
	return e
}

func (c *LocalCache) liveZSet(key string, create bool) *zset {
	z, ok := c.zsets[key]
	if ok && z.expired(time.Now()) {
		delete(c.zsets, key)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		z = &zset{}
		c.zsets[key] = z
	}
	return z
}

func (c *LocalCache) liveList(key string, create bool) *list {
	l, ok := c.lists[key]
	if ok && l.expired(time.Now()) {
		delete(c.lists, key)
		ok = false
	}
	if !ok {
		if !create {
			return nil
		}
		l = &list{}
		c.lists[key] = l
	}
	return l
}

// ---- KV ----

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.liveEntry(key)
	if e == nil {
		return "", ErrNotFound
	}
	return e.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := &entry{data: value}
	e.setTTL(ttl)
	c.kv[key] = e
	return nil
}

func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.kv, k)
		delete(c.zsets, k)
		delete(c.lists, k)
	}
	return nil
}

func (c *LocalCache) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveEntry(key) != nil || c.liveZSet(key, false) != nil || c.liveList(key, false) != nil, nil
}

// Expire sets a TTL on a key of any type.
func (c *LocalCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.liveEntry(key) != nil:
		c.kv[key].setTTL(ttl)
	case c.liveZSet(key, false) != nil:
		c.zsets[key].setTTL(ttl)
	case c.liveList(key, false) != nil:
		c.lists[key].setTTL(ttl)
	default:
		return ErrNotFound
	}
	return nil
}

// ---- ZSet ----

func (z *zset) sort() {
	sort.SliceStable(z.entries, func(a, b int) bool {
		if z.entries[a].Score != z.entries[b].Score {
			return z.entries[a].Score > z.entries[b].Score
		}
		return z.entries[a].Member > z.entries[b].Member
	})
}

func (z *zset) find(member string) int {
	for i, e := range z.entries {
		if e.Member == member {
			return i
		}
	}
	return -1
}

func (c *LocalCache) ZAdd(_ context.Context, key string, score float64, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := c.liveZSet(key, true)
	if i := z.find(member); i >= 0 {
		z.entries[i].Score = score
	} else {
		z.entries = append(z.entries, ZEntry{Member: member, Score: score})
	}
	z.sort()
	return nil
}

// ZIncrBy adds incr to member's score, creating it at 0 first.
func (c *LocalCache) ZIncrBy(_ context.Context, key string, incr float64, member string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := c.liveZSet(key, true)
	i := z.find(member)
	if i < 0 {
		z.entries = append(z.entries, ZEntry{Member: member})
		i = len(z.entries) - 1
	}
	z.entries[i].Score += incr
	score := z.entries[i].Score
	z.sort()
	return score, nil
}

func (c *LocalCache) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	entries, err := c.ZRevRangeWithScores(ctx, key, start, stop)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Member
	}
	return out, nil
}

// ZRevRangeWithScores returns members by rank, highest score first.
func (c *LocalCache) ZRevRangeWithScores(_ context.Context, key string, start, stop int64) ([]ZEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := c.liveZSet(key, false)
	if z == nil {
		return nil, nil
	}
	lo, hi, ok := span(start, stop, int64(len(z.entries)))
	if !ok {
		return nil, nil
	}
	out := make([]ZEntry, hi-lo+1)
	copy(out, z.entries[lo:hi+1])
	return out, nil
}

func (c *LocalCache) ZScore(_ context.Context, key, member string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := c.liveZSet(key, false)
	if z == nil {
		return 0, ErrNotFound
	}
	if i := z.find(member); i >= 0 {
		return z.entries[i].Score, nil
	}
	return 0, ErrNotFound
}

// ---- List ----

func (c *LocalCache) LPush(_ context.Context, key string, values ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.liveList(key, true)
	// last value ends up at index 0
	for _, v := range values {
		l.data = append([]string{v}, l.data...)
	}
	return nil
}

func (c *LocalCache) RPush(_ context.Context, key string, values ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.liveList(key, true)
	l.data = append(l.data, values...)
	return nil
}

func (c *LocalCache) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.liveList(key, false)
	if l == nil {
		return nil, nil
	}
	lo, hi, ok := span(start, stop, int64(len(l.data)))
	if !ok {
		return nil, nil
	}
	result := make([]string, hi-lo+1)
	copy(result, l.data[lo:hi+1])
	return result, nil
}

func (c *LocalCache) LTrim(_ context.Context, key string, start, stop int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.liveList(key, false)
	if l == nil {
		return nil
	}
	lo, hi, ok := span(start, stop, int64(len(l.data)))
	if !ok {
		delete(c.lists, key)
		return nil
	}
	l.data = append([]string(nil), l.data[lo:hi+1]...)
	return nil
}

// span resolves Redis-style inclusive indexes (negative counts from the end)
// against a length n.
func span(start, stop, n int64) (lo, hi int64, ok bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
