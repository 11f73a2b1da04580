// Package categorize assigns a content category to each section using an
// ordered, game-aware rule table. Categorization is pure and per-section,
// so sections of one document can be categorized concurrently.
package categorize

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/detect"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/providers"
	"github.com/PadsterH2012/rpger-content-extractor-sub001/internal/segment"
)

// DefaultCategory is assigned when no rule matches.
const DefaultCategory = "general"

// DefaultConfidence accompanies the default category.
const DefaultConfidence = 0.5

// matchConfidence accompanies any rule-table hit.
const matchConfidence = 0.8

// Category is the per-section categorization result.
type Category struct {
	Primary     string  `json:"primary"`
	Subcategory string  `json:"subcategory,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// String renders the category as primary or primary/subcategory.
func (c Category) String() string {
	if c.Subcategory != "" {
		return c.Primary + "/" + c.Subcategory
	}
	return c.Primary
}

type ruleEntry struct {
	Category    string   `yaml:"category"`
	Subcategory string   `yaml:"subcategory,omitempty"`
	Patterns    []string `yaml:"patterns"`
}

type ruleTables struct {
	Tables map[string][]ruleEntry `yaml:"tables"`
}

//go:embed rules.yaml
var rulesYAML []byte

var tables = mustLoadTables()

func mustLoadTables() *ruleTables {
	var t ruleTables
	if err := yaml.Unmarshal(rulesYAML, &t); err != nil {
		panic(fmt.Sprintf("categorize: bad embedded rule table: %v", err))
	}
	if _, ok := t.Tables["default"]; !ok {
		panic("categorize: embedded rule table missing default entry")
	}
	return &t
}

// Categorize assigns a category to one section. The section is never
// mutated. Rules for the detected game type are scanned in order, title
// first then body; the first matching pattern wins. No match yields the
// default category.
func Categorize(sec *segment.Section, meta *detect.GameMetadata) Category {
	rules := tablesFor(meta)
	title := strings.ToLower(sec.Title)
	body := strings.ToLower(sec.Text)

	for _, rule := range rules {
		if matchesAny(title, rule.Patterns) {
			return Category{Primary: rule.Category, Subcategory: rule.Subcategory, Confidence: matchConfidence}
		}
	}
	for _, rule := range rules {
		if matchesAny(body, rule.Patterns) {
			return Category{Primary: rule.Category, Subcategory: rule.Subcategory, Confidence: matchConfidence}
		}
	}
	return Category{Primary: DefaultCategory, Confidence: DefaultConfidence}
}

func tablesFor(meta *detect.GameMetadata) []ruleEntry {
	if meta != nil {
		if rules, ok := tables.Tables[meta.GameType]; ok {
			return rules
		}
	}
	return tables.Tables["default"]
}

func matchesAny(text string, patterns []string) bool {
	if text == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Categorizer wraps the rule table with an optional provider consult for
// sections the rules cannot place.
type Categorizer struct {
	registry  *providers.Registry
	providers []string
	consult   bool
	logger    *slog.Logger
}

// Options configures a Categorizer.
type Options struct {
	// Registry and Providers enable the provider consult path.
	Registry  *providers.Registry
	Providers []string

	// ConsultProvider asks a backend for ambiguous sections (no rule hit).
	// Consult failures degrade to the rule result silently.
	ConsultProvider bool

	Logger *slog.Logger
}

// New creates a Categorizer.
func New(opts Options) *Categorizer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Categorizer{
		registry:  opts.Registry,
		providers: opts.Providers,
		consult:   opts.ConsultProvider,
		logger:    opts.Logger,
	}
}

// Categorize applies the rule table and, when enabled and the rules fall
// through to the default, consults a classifier backend.
func (c *Categorizer) Categorize(ctx context.Context, sec *segment.Section, meta *detect.GameMetadata) Category {
	cat := Categorize(sec, meta)
	if !c.consult || cat.Primary != DefaultCategory || c.registry == nil {
		return cat
	}

	hint, err := c.consultBackend(ctx, sec)
	if err != nil {
		c.logger.Debug("category consult failed, keeping rule result", "error", err)
		return cat
	}
	return hint
}

func (c *Categorizer) consultBackend(ctx context.Context, sec *segment.Section) (Category, error) {
	sample := sec.Title + "\n\n" + sec.Text
	for _, name := range c.providers {
		backend, err := c.registry.Get(name)
		if err != nil {
			continue
		}
		if limiter := c.registry.Limiter(name); limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return Category{}, err
			}
		}
		result, err := backend.Classify(ctx, &providers.ClassifyRequest{
			Sample: sample,
			Kind:   providers.PromptCategoryHint,
		})
		if err != nil {
			continue
		}
		primary, sub := splitCategory(result.Category)
		if primary == "" {
			continue
		}
		return Category{Primary: primary, Subcategory: sub, Confidence: result.Confidence}, nil
	}
	return Category{}, providers.ErrProviderUnavailable
}

func splitCategory(s string) (primary, sub string) {
	primary, sub, _ = strings.Cut(s, "/")
	return primary, sub
}
