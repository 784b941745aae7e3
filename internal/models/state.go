package models

import (
	"encoding/json"
	"fmt"
)

// Route selects the branch a question takes through the pipeline.
type Route int

const (
	RouteUnset Route = iota
	RouteWeather
	RouteDocument
)

func (r Route) String() string {
	switch r {
	case RouteWeather:
		return "weather"
	case RouteDocument:
		return "document"
	default:
		return "unset"
	}
}

// MarshalJSON encodes the route as its lowercase name.
func (r Route) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts the names produced by MarshalJSON.
func (r *Route) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "weather":
		*r = RouteWeather
	case "document":
		*r = RouteDocument
	case "unset", "":
		*r = RouteUnset
	default:
		return fmt.Errorf("unknown route %q", s)
	}
	return nil
}

// WeatherFacts is the subset of a current-weather observation used to ground answers.
type WeatherFacts struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	TempC       float64 `json:"temp_c"`
	FeelsLikeC  float64 `json:"feels_like_c"`
	HumidityPct float64 `json:"humidity_pct"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"`
}

// Evaluation holds the rubric scores for an answer, or Error when the rubric
// output could not be parsed.
type Evaluation struct {
	Relevance    int    `json:"relevance"`
	Accuracy     int    `json:"accuracy"`
	Completeness int    `json:"completeness"`
	Error        string `json:"error,omitempty"`
}

// MarshalJSON encodes either the three scores or the error, never a mix.
func (e Evaluation) MarshalJSON() ([]byte, error) {
	if e.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{e.Error})
	}
	return json.Marshal(struct {
		Relevance    int `json:"relevance"`
		Accuracy     int `json:"accuracy"`
		Completeness int `json:"completeness"`
	}{e.Relevance, e.Accuracy, e.Completeness})
}

// Failed reports whether the evaluation is an error descriptor.
func (e *Evaluation) Failed() bool {
	return e != nil && e.Error != ""
}

// QueryState is the record threaded through every pipeline stage for one question.
// Stages never modify a state in place; they return a StatePatch that is applied
// to a copy.
type QueryState struct {
	Question          string        `json:"question"`
	Route             Route         `json:"route"`
	Context           string        `json:"context"`
	WeatherFacts      *WeatherFacts `json:"weather_facts,omitempty"`
	RetrievedPassages []string      `json:"retrieved_passages,omitempty"`
	RelevanceScores   []float64     `json:"relevance_scores,omitempty"`
	Answer            string        `json:"answer"`
	Evaluation        *Evaluation   `json:"evaluation,omitempty"`
}

// NewQueryState returns the initial state for question with every other field empty.
func NewQueryState(question string) QueryState {
	return QueryState{Question: question}
}

// StatePatch carries the fields a stage wants to change. Nil fields are left untouched.
type StatePatch struct {
	Route             *Route
	Context           *string
	WeatherFacts      *WeatherFacts
	RetrievedPassages []string
	RelevanceScores   []float64
	Answer            *string
	Evaluation        *Evaluation
}

// Clone returns a deep copy of s.
func (s QueryState) Clone() QueryState {
	out := s
	if s.WeatherFacts != nil {
		wf := *s.WeatherFacts
		out.WeatherFacts = &wf
	}
	if s.RetrievedPassages != nil {
		out.RetrievedPassages = append([]string{}, s.RetrievedPassages...)
	}
	if s.RelevanceScores != nil {
		out.RelevanceScores = append([]float64{}, s.RelevanceScores...)
	}
	if s.Evaluation != nil {
		ev := *s.Evaluation
		out.Evaluation = &ev
	}
	return out
}

// Apply returns a new state with p merged over a copy of s. The question is never changed.
func (s QueryState) Apply(p StatePatch) QueryState {
	out := s.Clone()
	if p.Route != nil {
		out.Route = *p.Route
	}
	if p.Context != nil {
		out.Context = *p.Context
	}
	if p.WeatherFacts != nil {
		wf := *p.WeatherFacts
		out.WeatherFacts = &wf
	}
	if p.RetrievedPassages != nil {
		out.RetrievedPassages = append([]string{}, p.RetrievedPassages...)
	}
	if p.RelevanceScores != nil {
		out.RelevanceScores = append([]float64{}, p.RelevanceScores...)
	}
	if p.Answer != nil {
		out.Answer = *p.Answer
	}
	if p.Evaluation != nil {
		ev := *p.Evaluation
		out.Evaluation = &ev
	}
	return out
}
