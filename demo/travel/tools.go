package travel

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/tool"
)

var now = time.Now

var weatherReports = map[string]string{
	"newyork": "The weather in New York is sunny with a temperature of 25°C.",
	"london":  "It's cloudy in London with a temperature of 15°C.",
	"tokyo":   "Tokyo is experiencing light rain and a temperature of 18°C.",
	"paris":   "The weather in Paris is sunny with a temperature of 22°C.",
}

var timezones = map[string]string{
	"new york": "America/New_York",
}

// CityArgs is the argument of both travel tools.
type CityArgs struct {
	City string `json:"city" jsonschema:"the name of the city, e.g. New York, London or Tokyo"`
}

// NewWeatherTool returns get_weather. Lookups ignore case and spaces.
func NewWeatherTool() tool.Tool {
	return tool.MustTyped("get_weather", "Retrieves the current weather report for a specified city.",
		func(_ *core.ToolContext, args CityArgs) (any, error) {
			return Weather(args.City), nil
		})
}

// NewTimeTool returns get_current_time.
func NewTimeTool() tool.Tool {
	return tool.MustTyped("get_current_time", "Returns the current time in a specified city.",
		func(_ *core.ToolContext, args CityArgs) (any, error) {
			return CurrentTime(args.City), nil
		})
}

// Weather returns a status/report map, or status/error_message for unknown
// cities.
func Weather(city string) map[string]any {
	key := strings.ReplaceAll(strings.ToLower(city), " ", "")
	if report, ok := weatherReports[key]; ok {
		return map[string]any{"status": "success", "report": report}
	}
	return map[string]any{
		"status":        "error",
		"error_message": fmt.Sprintf("Sorry, I don't have weather information for '%s'.", city),
	}
}

// CurrentTime reports the wall clock time of city.
func CurrentTime(city string) map[string]any {
	tz, ok := timezones[strings.ToLower(city)]
	if !ok {
		return timeError(city)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return timeError(city)
	}
	report := fmt.Sprintf("The current time in %s is %s", city, now().In(loc).Format("2006-01-02 15:04:05 MST-0700"))
	return map[string]any{"status": "success", "report": report}
}

func timeError(city string) map[string]any {
	return map[string]any{
		"status":        "error",
		"error_message": fmt.Sprintf("Sorry, I don't have timezone information for %s.", city),
	}
}
