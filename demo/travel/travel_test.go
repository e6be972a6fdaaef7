package travel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/runner"
	"github.com/seobando/agentkit/session"
)

func TestWeather(t *testing.T) {
	tests := []struct {
		city   string
		status string
		text   string
	}{
		{"New York", "success", "The weather in New York is sunny with a temperature of 25°C."},
		{"LONDON", "success", "It's cloudy in London with a temperature of 15°C."},
		{"tokyo", "success", "Tokyo is experiencing light rain and a temperature of 18°C."},
		{"Paris", "success", "The weather in Paris is sunny with a temperature of 22°C."},
		{"Berlin", "error", "Sorry, I don't have weather information for 'Berlin'."},
	}
	for _, tt := range tests {
		t.Run(tt.city, func(t *testing.T) {
			got := Weather(tt.city)
			assert.Equal(t, tt.status, got["status"])
			if tt.status == "success" {
				assert.Equal(t, tt.text, got["report"])
			} else {
				assert.Equal(t, tt.text, got["error_message"])
			}
		})
	}
}

func TestCurrentTime(t *testing.T) {
	orig := now
	t.Cleanup(func() { now = orig })
	now = func() time.Time { return time.Date(2025, 1, 15, 17, 30, 0, 0, time.UTC) }

	got := CurrentTime("New York")
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, "The current time in New York is 2025-01-15 12:30:00 EST-0500", got["report"])

	got = CurrentTime("Tokyo")
	assert.Equal(t, "error", got["status"])
	assert.Equal(t, "Sorry, I don't have timezone information for Tokyo.", got["error_message"])
}

func TestNewSystem_RunsPipeline(t *testing.T) {
	research := model.NewMockModel("research", "mock")
	research.EnqueueFunctionCall("call-1", "get_weather", map[string]any{"city": "Tokyo"})
	research.EnqueueText("Tokyo: light rain, 18°C. Visit Senso-ji.")
	itinerary := model.NewMockModel("itinerary", "mock")
	itinerary.EnqueueText("Day 1: Asakusa and Senso-ji")
	optimizer := model.NewMockModel("optimizer", "mock")
	optimizer.EnqueueText("ITINERARY: Day 1 ...\n\nOPTIMIZATION TIPS: buy a Suica card")

	system, err := NewSystem(Models{Research: research, Itinerary: itinerary, Optimizer: optimizer})
	require.NoError(t, err)
	assert.Equal(t, Name, system.Name())
	require.Len(t, system.SubAgents(), 3)

	store := session.NewInMemoryStore()
	r := runner.New("travel", system, func(o *runner.Options) { o.SessionStore = store })
	events, err := r.RunSync(context.Background(), "traveler", "trip", *core.NewTextContent(core.RoleUser, "Plan a 5-day trip to Tokyo, Japan for a family with kids"))
	require.NoError(t, err)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "TravelOptimizerAgent", last.Author)

	// the weather report went back to the research model
	reqs := research.Requests()
	require.Len(t, reqs, 2)
	var found bool
	for _, c := range reqs[1].Contents {
		for _, p := range c.Parts {
			if fr, ok := p.(core.FunctionResponsePart); ok && fr.FunctionResponse.Name == "get_weather" {
				found = true
				report := fr.FunctionResponse.Response.(map[string]any)["report"]
				assert.Equal(t, "Tokyo is experiencing light rain and a temperature of 18°C.", report)
			}
		}
	}
	assert.True(t, found)

	assert.Contains(t, itinerary.Requests()[0].Instructions, "Tokyo: light rain, 18°C. Visit Senso-ji.")
	assert.Contains(t, optimizer.Requests()[0].Instructions, "Day 1: Asakusa and Senso-ji")

	sess, err := store.Get(context.Background(), core.SessionKey{AppName: "travel", UserID: "traveler", SessionID: "trip"})
	require.NoError(t, err)
	assert.Equal(t, "Tokyo: light rain, 18°C. Visit Senso-ji.", sess.State[ResearchKey])
	assert.Equal(t, "Day 1: Asakusa and Senso-ji", sess.State[ItineraryKey])
	assert.Contains(t, sess.State[PlanKey], "OPTIMIZATION TIPS")
}
