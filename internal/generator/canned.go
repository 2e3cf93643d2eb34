package generator

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"storyweaver/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog - тексты заглушек по стилям.
type Catalog struct {
	DefaultStyle  string              `yaml:"default_style"`
	Openings      map[string]string   `yaml:"openings"`
	Continuations map[string][]string `yaml:"continuations"`
}

// ParseCatalog разбирает YAML и проверяет, что для стиля по умолчанию есть тексты.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse content catalog: %w", err)
	}
	if c.DefaultStyle == "" {
		return nil, fmt.Errorf("content catalog: default_style is empty")
	}
	if _, ok := c.Openings[c.DefaultStyle]; !ok {
		return nil, fmt.Errorf("content catalog: no opening for default style %q", c.DefaultStyle)
	}
	if len(c.Continuations[c.DefaultStyle]) == 0 {
		return nil, fmt.Errorf("content catalog: no continuations for default style %q", c.DefaultStyle)
	}
	for style, list := range c.Continuations {
		if len(list) == 0 {
			return nil, fmt.Errorf("content catalog: style %q has an empty continuation list", style)
		}
	}
	return &c, nil
}

// DefaultCatalog - встроенный в бинарник каталог.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(catalogYAML)
}

// Random - источник случайности; *rand.Rand из math/rand/v2 подходит.
type Random interface {
	IntN(n int) int
	Int64N(n int64) int64
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int       { return rand.IntN(n) }
func (globalRandom) Int64N(n int64) int64 { return rand.Int64N(n) }

// CannedProvider отдаёт заготовленные тексты. Продолжение приходит
// после случайной задержки в [minDelay, maxDelay).
type CannedProvider struct {
	catalog  *Catalog
	minDelay time.Duration
	maxDelay time.Duration
	rnd      Random
	sleep    func(ctx context.Context, d time.Duration) error
}

type CannedOption func(*CannedProvider)

func WithDelay(min, max time.Duration) CannedOption {
	return func(p *CannedProvider) {
		if min < 0 {
			min = 0
		}
		if max < min {
			max = min
		}
		p.minDelay, p.maxDelay = min, max
	}
}

func WithRandom(r Random) CannedOption {
	return func(p *CannedProvider) { p.rnd = r }
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) CannedOption {
	return func(p *CannedProvider) { p.sleep = sleep }
}

func NewCannedProvider(catalog *Catalog, opts ...CannedOption) *CannedProvider {
	p := &CannedProvider{
		catalog:  catalog,
		minDelay: time.Second,
		maxDelay: 3 * time.Second,
		rnd:      globalRandom{},
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *CannedProvider) Opening(_ context.Context, cfg models.StoryConfig) (string, error) {
	tmpl, ok := p.catalog.Openings[cfg.Style]
	if !ok {
		tmpl = p.catalog.Openings[p.catalog.DefaultStyle]
	}
	return strings.ReplaceAll(tmpl, "${title}", cfg.Title), nil
}

func (p *CannedProvider) Continuation(ctx context.Context, req models.ContinueRequest) (string, error) {
	style := ""
	if req.Config != nil {
		style = req.Config.Style
	}
	list, ok := p.catalog.Continuations[style]
	if !ok {
		list = p.catalog.Continuations[p.catalog.DefaultStyle]
	}
	text := list[p.rnd.IntN(len(list))]

	if err := p.sleep(ctx, p.Delay()); err != nil {
		return "", err
	}
	return text, nil
}

// Delay выбирает задержку равномерно в [minDelay, maxDelay).
func (p *CannedProvider) Delay() time.Duration {
	spread := p.maxDelay - p.minDelay
	if spread <= 0 {
		return p.minDelay
	}
	return p.minDelay + time.Duration(p.rnd.Int64N(int64(spread)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
