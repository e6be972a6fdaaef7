// Package travel is the sequential travel planner demo. Three agents run in
// order and hand their results to each other through session state.
package travel

import (
	"github.com/seobando/agentkit/agent"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/tool"
)

// Name is the name of the root sequential agent.
const Name = "TravelPlanningSystem"

// State keys written by the pipeline.
const (
	ResearchKey  = "destination_research"
	ItineraryKey = "travel_itinerary"
	PlanKey      = "optimized_plan"
)

const researchInstruction = `You are a travel researcher. You will be given a destination and travel preferences, and you will research:
- Best time to visit and weather patterns
- Top attractions and must-see locations
- Local culture, customs, and etiquette tips
- Transportation options within the destination
- Safety considerations and travel requirements
Use get_weather and get_current_time when they help.
Provide comprehensive destination insights for trip planning.`

const itineraryInstruction = `You are a professional travel planner. Using the destination research provided, create a detailed itinerary that includes:
- Day-by-day schedule with recommended activities
- Suggested accommodation areas or districts
- Estimated time requirements for each activity
- Meal recommendations and dining suggestions
- Budget estimates for major expenses
Structure it logically for easy following during the trip.

Destination research:
{destination_research}`

const optimizerInstruction = `You are a seasoned travel consultant. Using the itinerary provided, optimize it by adding:
- Money-saving tips and budget alternatives
- Packing recommendations specific to the destination
- Backup plans for weather or unexpected situations
- Local apps, websites, or resources to download
- Cultural do's and don'ts for respectful travel

Format the final output as:

ITINERARY: [the detailed itinerary]

OPTIMIZATION TIPS: [your money-saving and practical tips here]

TRAVEL ESSENTIALS: [packing and preparation advice here]

BACKUP PLANS: [alternative options and contingencies here]

Itinerary:
{travel_itinerary}`

// Models drives each step with its own model. A nil field falls back to
// Default.
type Models struct {
	Default   model.Model
	Research  model.Model
	Itinerary model.Model
	Optimizer model.Model
}

func (m Models) pick(step model.Model) model.Model {
	if step != nil {
		return step
	}
	return m.Default
}

// NewSystem builds the research, itinerary and optimizer pipeline.
func NewSystem(models Models) (*agent.SequentialAgent, error) {
	research := agent.NewModelAgent("DestinationResearchAgent", models.pick(models.Research), func(o *agent.ModelAgentOptions) {
		o.Description = "An agent that researches travel destinations and gathers essential information"
		o.Instruction = agent.NewInstructionFromText(researchInstruction)
		o.Tools = []tool.Tool{NewWeatherTool(), NewTimeTool()}
		o.OutputKey = ResearchKey
	})
	itinerary := agent.NewModelAgent("ItineraryBuilderAgent", models.pick(models.Itinerary), func(o *agent.ModelAgentOptions) {
		o.Description = "An agent that creates structured travel itineraries with daily schedules"
		o.Instruction = agent.NewInstructionFromText(itineraryInstruction)
		o.OutputKey = ItineraryKey
	})
	optimizer := agent.NewModelAgent("TravelOptimizerAgent", models.pick(models.Optimizer), func(o *agent.ModelAgentOptions) {
		o.Description = "An agent that optimizes travel plans with practical advice and alternatives"
		o.Instruction = agent.NewInstructionFromText(optimizerInstruction)
		o.OutputKey = PlanKey
	})
	return agent.NewSequentialAgent(Name, []core.Agent{research, itinerary, optimizer}, func(o *agent.WorkflowOptions) {
		o.Description = "A comprehensive system that researches destinations, builds itineraries, and optimizes travel plans"
	})
}
