// Package content is the parallel content creation demo. Five specialists
// work on the same topic at once and each stores its draft under its own
// state key.
package content

import (
	"fmt"
	"time"

	"github.com/seobando/agentkit/agent"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
)

// Name is the name of the root parallel agent.
const Name = "TrendAwareContentCreationSystem"

// Output keys of the specialists.
const (
	BlogKey   = "blog_content"
	SEOKey    = "seo_strategy"
	VisualKey = "visual_content"
	SocialKey = "social_strategy"
	EmailKey  = "email_campaigns"
)

// Specialist describes one member of the fan-out.
type Specialist struct {
	Name        string
	Title       string
	OutputKey   string
	Description string
	Instruction string
}

// Specialists lists the members in presentation order.
var Specialists = []Specialist{
	{
		Name:        "TrendAwareBlogWriterAgent",
		Title:       "Blog Post",
		OutputKey:   BlogKey,
		Description: "An agent that creates trend-aware blog content using comprehensive trend research",
		Instruction: `You are a professional blog writer with expertise in trend analysis. Given a topic:
- Identify trending keywords, viral content patterns, recent industry news and seasonal timing.
- Write a trend-aware blog post of 800-1200 words with compelling, SEO-friendly headlines.
- Reference recent developments and current statistics where you can.`,
	},
	{
		Name:        "TrendAwareSEOAgent",
		Title:       "SEO Strategy",
		OutputKey:   SEOKey,
		Description: "An agent that creates SEO strategies based on current trends and competitor analysis",
		Instruction: `You are an SEO specialist who excels at trend-based keyword research. For the given topic produce:
- High-value trending keywords and long-tail search terms
- SEO-optimized titles and meta descriptions
- Content structure recommendations based on top performers
- Linking opportunities, seasonal timing and competitor gaps`,
	},
	{
		Name:        "TrendAwareVisualAgent",
		Title:       "Visual Content",
		OutputKey:   VisualKey,
		Description: "An agent that creates visual content strategies based on viral patterns and visual trends",
		Instruction: `You are a visual content strategist who identifies viral visual patterns. For the given topic produce:
- Trending visual formats for each platform
- Image and video concepts based on viral patterns
- Popular color schemes and design trends
- A visual content calendar with seasonal themes`,
	},
	{
		Name:        "TrendAwareSocialAgent",
		Title:       "Social Media Strategy",
		OutputKey:   SocialKey,
		Description: "An agent that creates social media strategies based on viral patterns and engagement trends",
		Instruction: `You are a social media expert who analyzes viral content patterns. For the given topic produce:
- Platform-specific content ideas
- Trending hashtags and optimal posting times
- Formats that drive the highest engagement
- Influencer collaboration and community growth tactics`,
	},
	{
		Name:        "TrendAwareEmailAgent",
		Title:       "Email Campaigns",
		OutputKey:   EmailKey,
		Description: "An agent that creates email marketing campaigns based on industry trends and best practices",
		Instruction: `You are an email marketing specialist who stays current with industry trends. For the given topic produce:
- Subject lines built on trending topics and industry news
- Newsletter themes and lead magnets
- Email sequence and segmentation strategies`,
	},
}

// NewSystem builds the parallel agent. Every specialist gets its own model
// from newModel so their calls can run concurrently. A zero timeout means no
// limit.
func NewSystem(newModel func(s Specialist) model.Model, timeout time.Duration) (*agent.ParallelAgent, error) {
	subs := make([]core.Agent, 0, len(Specialists))
	for _, s := range Specialists {
		llm := newModel(s)
		if llm == nil {
			return nil, fmt.Errorf("no model for %s", s.Name)
		}
		subs = append(subs, agent.NewModelAgent(s.Name, llm, func(o *agent.ModelAgentOptions) {
			o.Description = s.Description
			o.Instruction = agent.NewInstructionFromText(s.Instruction)
			o.OutputKey = s.OutputKey
		}))
	}
	return agent.NewParallelAgent(Name, subs, func(o *agent.ParallelAgentOptions) {
		o.Description = "A content creation system that drafts blog, SEO, visual, social and email content in parallel"
		o.Timeout = timeout
	})
}

// Section is one specialist's result.
type Section struct {
	Title string
	Key   string
	Text  string
}

// Results are the drafts found in the final session state.
type Results struct {
	Sections []Section
}

// Gather reads every output key from state. Missing keys yield empty text.
func Gather(state map[string]any) Results {
	r := Results{Sections: make([]Section, 0, len(Specialists))}
	for _, s := range Specialists {
		text, _ := state[s.OutputKey].(string)
		r.Sections = append(r.Sections, Section{Title: s.Title, Key: s.OutputKey, Text: text})
	}
	return r
}

// Get returns the text stored under key.
func (r Results) Get(key string) string {
	for _, s := range r.Sections {
		if s.Key == key {
			return s.Text
		}
	}
	return ""
}

// Complete reports whether every specialist produced output.
func (r Results) Complete() bool {
	for _, s := range r.Sections {
		if s.Text == "" {
			return false
		}
	}
	return len(r.Sections) == len(Specialists)
}
