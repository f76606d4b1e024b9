package session

// Storer data persistence
type Storer interface {
	Session() SessionStorer
}

// Core business domain
type Core struct {
	store      Storer
	lang       string
	recent     int
	retainDays int
}

type Option func(*Core)

// WithCoach 教练默认语言与评估会话数
func WithCoach(lang string, recent int) Option {
	return func(c *Core) {
		if lang != "" {
			c.lang = lang
		}
		if recent > 0 {
			c.recent = recent
		}
	}
}

// WithRetention 会话历史保留天数，0 表示永久保留
func WithRetention(days int) Option {
	return func(c *Core) {
		c.retainDays = days
	}
}

// NewCore create business domain
func NewCore(store Storer, opts ...Option) Core {
	c := Core{store: store, lang: "en", recent: 10}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
