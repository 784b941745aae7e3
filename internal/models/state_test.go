package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestQueryState_ApplyDoesNotAlias(t *testing.T) {
	route := RouteDocument
	ctx := "a\n\nb"
	passages := []string{"a", "b"}
	scores := []float64{0.9, 0.4}

	initial := NewQueryState("q")
	next := initial.Apply(StatePatch{Route: &route})
	final := next.Apply(StatePatch{Context: &ctx, RetrievedPassages: passages, RelevanceScores: scores})

	if initial.Route != RouteUnset || initial.Context != "" {
		t.Errorf("initial state was modified: %+v", initial)
	}
	if next.Context != "" || next.RetrievedPassages != nil {
		t.Errorf("intermediate state was modified: %+v", next)
	}
	if final.Route != RouteDocument || final.Context != ctx {
		t.Errorf("final state = %+v", final)
	}
	passages[0] = "changed"
	scores[0] = 0
	if final.RetrievedPassages[0] != "a" || final.RelevanceScores[0] != 0.9 {
		t.Error("patch slices must be copied into the new state")
	}
	if final.Question != "q" {
		t.Errorf("question changed to %q", final.Question)
	}
}

func TestQueryState_ApplyEmptySlices(t *testing.T) {
	s := NewQueryState("q").Apply(StatePatch{RetrievedPassages: []string{}, RelevanceScores: []float64{}})
	if s.RetrievedPassages == nil || len(s.RetrievedPassages) != 0 {
		t.Errorf("expected empty non-nil passages, got %#v", s.RetrievedPassages)
	}
	if s.RelevanceScores == nil || len(s.RelevanceScores) != 0 {
		t.Errorf("expected empty non-nil scores, got %#v", s.RelevanceScores)
	}
}

func TestQueryState_CloneCopiesPointers(t *testing.T) {
	s := NewQueryState("q").Apply(StatePatch{
		WeatherFacts: &WeatherFacts{Name: "Mumbai"},
		Evaluation:   &Evaluation{Relevance: 8},
	})
	c := s.Clone()
	c.WeatherFacts.Name = "Pune"
	c.Evaluation.Relevance = 1
	if s.WeatherFacts.Name != "Mumbai" || s.Evaluation.Relevance != 8 {
		t.Error("Clone must not share pointers")
	}
}

func TestRoute_JSON(t *testing.T) {
	for _, r := range []Route{RouteUnset, RouteWeather, RouteDocument} {
		data, err := json.Marshal(r)
		if err != nil {
			t.Fatal(err)
		}
		var got Route
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got != r {
			t.Errorf("round trip %v -> %s -> %v", r, data, got)
		}
	}
	var r Route
	if err := json.Unmarshal([]byte(`"banana"`), &r); err == nil {
		t.Error("expected error for unknown route")
	}
}

func TestNewQueryResponse_RouteSpecificFields(t *testing.T) {
	weather := QueryState{
		Question:          "q",
		Route:             RouteWeather,
		WeatherFacts:      &WeatherFacts{Name: "Mumbai"},
		RetrievedPassages: []string{"stray"},
	}
	resp := NewQueryResponse(&weather, 1500*time.Millisecond)
	if resp.Route != "weather" || resp.WeatherData == nil || resp.RetrievedDocs != nil {
		t.Errorf("weather response = %+v", resp)
	}
	if resp.ProcessingTime != 1.5 {
		t.Errorf("ProcessingTime = %v", resp.ProcessingTime)
	}

	doc := QueryState{
		Question:          "q",
		Route:             RouteDocument,
		RetrievedPassages: []string{"p"},
		RelevanceScores:   []float64{0.5},
	}
	resp = NewQueryResponse(&doc, 0)
	if resp.Route != "document" || resp.WeatherData != nil || len(resp.RetrievedDocs) != 1 || len(resp.RerankScores) != 1 {
		t.Errorf("document response = %+v", resp)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("q", errors.New("boom"))
	if resp.Route != RouteError || resp.Answer != "Error: boom" {
		t.Errorf("got %+v", resp)
	}
}

func TestEvaluation_Failed(t *testing.T) {
	var nilEval *Evaluation
	if nilEval.Failed() {
		t.Error("nil evaluation is not failed")
	}
	if (&Evaluation{Relevance: 1}).Failed() {
		t.Error("scored evaluation is not failed")
	}
	if !(&Evaluation{Error: "x"}).Failed() {
		t.Error("error evaluation is failed")
	}
}

func TestEvaluation_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		ev   Evaluation
		want string
	}{
		{"zero score kept", Evaluation{Relevance: 0, Accuracy: 11, Completeness: -3}, `{"relevance":0,"accuracy":11,"completeness":-3}`},
		{"scores", Evaluation{Relevance: 9, Accuracy: 8, Completeness: 7}, `{"relevance":9,"accuracy":8,"completeness":7}`},
		{"error only", Evaluation{Relevance: 4, Error: "invalid evaluation json"}, `{"error":"invalid evaluation json"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(&tt.ev)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestQueryResponse_JSONFields(t *testing.T) {
	encode := func(t *testing.T, st QueryState) map[string]interface{} {
		t.Helper()
		data, err := json.Marshal(NewQueryResponse(&st, 0))
		if err != nil {
			t.Fatal(err)
		}
		var raw map[string]interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatal(err)
		}
		return raw
	}

	t.Run("document route without candidates", func(t *testing.T) {
		raw := encode(t, QueryState{Question: "q", Route: RouteDocument, Answer: "not found",
			Evaluation: &Evaluation{Relevance: 0, Accuracy: 2, Completeness: 1}})
		if v, ok := raw["context"]; !ok || v != "" {
			t.Errorf("context = %v (present %v), want empty string", v, ok)
		}
		for _, key := range []string{"retrieved_docs", "rerank_scores"} {
			list, ok := raw[key].([]interface{})
			if !ok || len(list) != 0 {
				t.Errorf("%s = %#v, want empty list", key, raw[key])
			}
		}
		ev, _ := raw["evaluation"].(map[string]interface{})
		if v, ok := ev["relevance"]; !ok || v != float64(0) {
			t.Errorf("evaluation = %v, want relevance 0", ev)
		}
	})

	t.Run("weather route", func(t *testing.T) {
		raw := encode(t, QueryState{Question: "q", Route: RouteWeather, Context: "Location: Mumbai, IN",
			WeatherFacts: &WeatherFacts{Name: "Mumbai"}, RetrievedPassages: []string{"stray"}})
		if _, ok := raw["weather_data"]; !ok {
			t.Error("weather_data missing")
		}
		for _, key := range []string{"retrieved_docs", "rerank_scores"} {
			if _, ok := raw[key]; ok {
				t.Errorf("%s present on weather route", key)
			}
		}
	})

	t.Run("decodes back", func(t *testing.T) {
		st := QueryState{Question: "q", Route: RouteDocument, RetrievedPassages: []string{"p"}, RelevanceScores: []float64{0.5}}
		data, err := json.Marshal(NewQueryResponse(&st, 0))
		if err != nil {
			t.Fatal(err)
		}
		var resp QueryResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatal(err)
		}
		if len(resp.RetrievedDocs) != 1 || resp.RetrievedDocs[0] != "p" || resp.RerankScores[0] != 0.5 {
			t.Errorf("decoded %+v", resp)
		}
	})
}
