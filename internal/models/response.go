package models

import (
	"encoding/json"
	"time"
)

// RouteError is the route name reported for a batch item whose pipeline failed.
const RouteError = "error"

// QueryResponse is the API view of a finished QueryState. Weather data is only
// present on the weather route. Passages and scores are encoded on the document
// route, as empty lists when nothing was retrieved, and omitted elsewhere.
type QueryResponse struct {
	Question       string        `json:"question"`
	Route          string        `json:"route"`
	Answer         string        `json:"answer"`
	Context        string        `json:"context"`
	Evaluation     *Evaluation   `json:"evaluation,omitempty"`
	WeatherData    *WeatherFacts `json:"weather_data,omitempty"`
	RetrievedDocs  []string      `json:"retrieved_docs"`
	RerankScores   []float64     `json:"rerank_scores"`
	ProcessingTime float64       `json:"processing_time"`
}

// NewQueryResponse builds the response for state, which took elapsed to produce.
func NewQueryResponse(state *QueryState, elapsed time.Duration) *QueryResponse {
	resp := &QueryResponse{
		Question:       state.Question,
		Route:          state.Route.String(),
		Answer:         state.Answer,
		Context:        state.Context,
		Evaluation:     state.Evaluation,
		ProcessingTime: elapsed.Seconds(),
	}
	switch state.Route {
	case RouteWeather:
		resp.WeatherData = state.WeatherFacts
	case RouteDocument:
		resp.RetrievedDocs = append([]string{}, state.RetrievedPassages...)
		resp.RerankScores = append([]float64{}, state.RelevanceScores...)
	}
	return resp
}

// MarshalJSON gates retrieved_docs and rerank_scores on the route.
func (r QueryResponse) MarshalJSON() ([]byte, error) {
	type response QueryResponse
	out := struct {
		response
		RetrievedDocs *[]string  `json:"retrieved_docs,omitempty"`
		RerankScores  *[]float64 `json:"rerank_scores,omitempty"`
	}{response: response(r)}
	if r.Route == RouteDocument.String() {
		docs, scores := r.RetrievedDocs, r.RerankScores
		if docs == nil {
			docs = []string{}
		}
		if scores == nil {
			scores = []float64{}
		}
		out.RetrievedDocs, out.RerankScores = &docs, &scores
	}
	return json.Marshal(out)
}

// NewErrorResponse builds the response for a question whose pipeline failed.
func NewErrorResponse(question string, err error) *QueryResponse {
	return &QueryResponse{
		Question: question,
		Route:    RouteError,
		Answer:   "Error: " + err.Error(),
	}
}

// BatchQueryResponse is the result of a batch request, one entry per question in order.
type BatchQueryResponse struct {
	Results   []*QueryResponse `json:"results"`
	TotalTime float64          `json:"total_time"`
}

// CollectionInfo describes the passage collection backing document answers.
type CollectionInfo struct {
	Name      string `json:"name"`
	Backend   string `json:"backend"`
	Documents int64  `json:"documents"`
	Chunks    int64  `json:"chunks"`
	Vectors   int64  `json:"vectors"`
	DiskBytes int64  `json:"disk_bytes,omitempty"`
}

// HealthResponse is returned by the health endpoint. Status is "degraded"
// when the collection cannot be read.
type HealthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	Documents int64  `json:"documents"`
	Chunks    int64  `json:"chunks"`
	Vectors   int64  `json:"vectors"`
	Error     string `json:"error,omitempty"`
}

// IngestRequest asks the server to ingest a file or directory.
type IngestRequest struct {
	Path string `json:"path"`
}

// ServiceInfo is returned by the root endpoint.
type ServiceInfo struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}
