package pattern

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gowvp/autoinput/internal/core/note"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Type 音符序列形态
type Type string

const (
	TypeSingle     Type = "single"
	TypeStream     Type = "stream"
	TypeAscending  Type = "ascending"
	TypeDescending Type = "descending"
	TypeMixed      Type = "mixed"
)

// signatureLen 签名只取前 10 个音符
const signatureLen = 10

// Info 模式分析结果
type Info struct {
	Type       Type    `json:"type"`
	Difficulty float64 `json:"difficulty"` // [0, 10]
	BPM        float64 `json:"bpm"`
	Density    int     `json:"density"` // 音符数量
}

// Stats 缓存命中情况
type Stats struct {
	CacheSize     int     `json:"cache_size"`
	CacheCapacity int     `json:"cache_capacity"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	HitRate       float64 `json:"hit_rate"`
}

// Classifier 带 LRU 缓存的模式分类器，并发安全
type Classifier struct {
	cache    *lru.Cache[string, Info]
	capacity int
	hits     atomic.Uint64
	misses   atomic.Uint64
}

// NewClassifier capacity 为缓存上限，超出后淘汰最久未使用的条目
func NewClassifier(capacity int) (*Classifier, error) {
	cache, err := lru.New[string, Info](capacity)
	if err != nil {
		return nil, fmt.Errorf("pattern cache: %w", err)
	}
	return &Classifier{cache: cache, capacity: capacity}, nil
}

// Signature 取前 10 个音符的轨道序号，以 "-" 连接
func Signature(ds []note.Detection) string {
	n := min(len(ds), signatureLen)
	parts := make([]string, n)
	for i := range n {
		parts[i] = strconv.Itoa(ds[i].Lane)
	}
	return strings.Join(parts, "-")
}

// Classify 返回序列的形态、难度与 BPM，相同签名命中缓存
func (c *Classifier) Classify(ds []note.Detection) Info {
	sig := Signature(ds)
	if v, ok := c.cache.Get(sig); ok {
		c.hits.Add(1)
		return v
	}
	c.misses.Add(1)
	info := Analyze(ds)
	c.cache.Add(sig, info)
	return info
}

func (c *Classifier) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		CacheSize:     c.cache.Len(),
		CacheCapacity: c.capacity,
		Hits:          hits,
		Misses:        misses,
		HitRate:       rate,
	}
}

// Analyze 不经缓存直接分析
func Analyze(ds []note.Detection) Info {
	return Info{
		Type:       classify(ds),
		Difficulty: Difficulty(ds),
		BPM:        BPM(ds),
		Density:    len(ds),
	}
}

func classify(ds []note.Detection) Type {
	if len(ds) < 2 {
		return TypeSingle
	}
	same, asc, desc := true, true, true
	for i := 1; i < len(ds); i++ {
		prev, cur := ds[i-1].Lane, ds[i].Lane
		if cur != prev {
			same = false
		}
		if cur <= prev {
			asc = false
		}
		if cur >= prev {
			desc = false
		}
	}
	switch {
	case same:
		return TypeStream
	case asc:
		return TypeAscending
	case desc:
		return TypeDescending
	default:
		return TypeMixed
	}
}

// Difficulty 密度 + 跨轨跳跃 + 音符间隔三项之和，上限 10
func Difficulty(ds []note.Detection) float64 {
	if len(ds) == 0 {
		return 0
	}
	density := min(float64(len(ds))/100, 1) * 3

	var jumps float64
	for i := 1; i < len(ds); i++ {
		if abs(ds[i].Lane-ds[i-1].Lane) > 3 {
			jumps += 0.1
		}
	}
	jumps = min(jumps, 4)

	var timing float64
	if len(ds) > 1 {
		switch avg := meanIntervalMs(ds); {
		case avg < 100:
			timing = 3
		case avg < 200:
			timing = 2
		default:
			timing = 1
		}
	}
	return max(0, min(density+jumps+timing, 10))
}

// BPM 60 / 平均间隔(秒)
func BPM(ds []note.Detection) float64 {
	if len(ds) < 2 {
		return 0
	}
	avg := meanIntervalMs(ds)
	if avg <= 0 {
		return 0
	}
	return 60 / (avg / 1000)
}

func meanIntervalMs(ds []note.Detection) float64 {
	var sum float64
	for i := 1; i < len(ds); i++ {
		sum += float64(ds[i].Timestamp.Sub(ds[i-1].Timestamp)) / 1e6
	}
	return sum / float64(len(ds)-1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
