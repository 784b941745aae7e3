package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/weather"
	"github.com/hyperjump/kotae/pkg/utils"
)

// weatherStage extracts the city from the question and fetches its current weather.
type weatherStage struct {
	llm     llm.Client
	fetcher weather.Fetcher
	timeout time.Duration
}

func (w *weatherStage) run(ctx context.Context, st models.QueryState) (stageResult, error) {
	raw, err := complete(ctx, w.llm, w.timeout, cityExtractionPrompt, st.Question)
	if err != nil {
		return stageResult{}, &StageError{Kind: KindClassification, Stage: stageWeather, Err: err}
	}
	city := strings.TrimSpace(raw)

	fctx, cancel := leafContext(ctx, w.timeout)
	defer cancel()
	facts, err := w.fetcher.Fetch(fctx, city)
	if err != nil {
		return stageResult{
			Patch:    models.StatePatch{Context: strPtr("Error fetching weather data: " + err.Error())},
			Degraded: KindFetch,
			Cause:    err,
		}, nil
	}
	return stageResult{Patch: models.StatePatch{
		WeatherFacts: facts,
		Context:      strPtr(FormatWeatherContext(facts)),
	}}, nil
}

// FormatWeatherContext renders facts as the labelled block the answer prompt is grounded on.
func FormatWeatherContext(f *models.WeatherFacts) string {
	return fmt.Sprintf(
		"Location: %s, %s\nTemperature: %s°C\nFeels Like: %s°C\nHumidity: %s%%\nWeather: %s\nWind Speed: %s m/s",
		f.Name, f.Country,
		utils.FormatNumber(f.TempC),
		utils.FormatNumber(f.FeelsLikeC),
		utils.FormatNumber(f.HumidityPct),
		f.Description,
		utils.FormatNumber(f.WindSpeed),
	)
}
