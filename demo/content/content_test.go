package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/runner"
	"github.com/seobando/agentkit/session"
)

func TestNewSystem_GathersAllDrafts(t *testing.T) {
	models := map[string]*model.MockModel{}
	sys, err := NewSystem(func(s Specialist) model.Model {
		m := model.NewMockModel(s.Name, "mock")
		m.EnqueueText(s.Title + " draft")
		models[s.Name] = m
		return m
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, Name, sys.Name())
	require.Len(t, sys.SubAgents(), len(Specialists))

	store := session.NewInMemoryStore()
	r := runner.New("content", sys, func(o *runner.Options) { o.SessionStore = store })
	events, err := r.RunSync(context.Background(), "marketer", "s1", *core.NewTextContent(core.RoleUser, "sustainable fashion"))
	require.NoError(t, err)

	authors := map[string]bool{}
	for _, ev := range events {
		authors[ev.Author] = true
	}
	for _, s := range Specialists {
		assert.True(t, authors[s.Name], "missing events of %s", s.Name)
		require.Len(t, models[s.Name].Requests(), 1)
		assert.Equal(t, "sustainable fashion", models[s.Name].Requests()[0].LastUserText())
	}

	sess, err := store.Get(context.Background(), core.SessionKey{AppName: "content", UserID: "marketer", SessionID: "s1"})
	require.NoError(t, err)
	res := Gather(sess.State)
	assert.True(t, res.Complete())
	assert.Equal(t, "Blog Post draft", res.Get(BlogKey))
	assert.Equal(t, "SEO Strategy draft", res.Get(SEOKey))
	assert.Equal(t, "Visual Content draft", res.Get(VisualKey))
	assert.Equal(t, "Social Media Strategy draft", res.Get(SocialKey))
	assert.Equal(t, "Email Campaigns draft", res.Get(EmailKey))
}

func TestNewSystem_RequiresModels(t *testing.T) {
	_, err := NewSystem(func(Specialist) model.Model { return nil }, 0)
	assert.Error(t, err)
}

func TestGather_Partial(t *testing.T) {
	res := Gather(map[string]any{BlogKey: "post", SEOKey: 42})
	assert.False(t, res.Complete())
	assert.Equal(t, "post", res.Get(BlogKey))
	assert.Empty(t, res.Get(SEOKey))
	assert.Empty(t, res.Get("unknown"))
	require.Len(t, res.Sections, 5)
	assert.Equal(t, "Blog Post", res.Sections[0].Title)
}
