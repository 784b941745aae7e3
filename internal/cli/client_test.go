package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func TestClient(t *testing.T) {
	var cleared bool
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		var req models.QueryRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(models.QueryResponse{Question: req.Question, Route: "weather", Answer: "sunny"})
	})
	mux.HandleFunc("/api/v1/batch-query", func(w http.ResponseWriter, r *http.Request) {
		var req models.BatchQueryRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := models.BatchQueryResponse{}
		for _, q := range req.Questions {
			resp.Results = append(resp.Results, &models.QueryResponse{Question: q})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/v1/collection", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			cleared = true
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "cleared"})
			return
		}
		_ = json.NewEncoder(w).Encode(models.CollectionInfo{Backend: "local", Vectors: 4})
	})
	mux.HandleFunc("/api/v1/documents", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"path not found"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := NewClient(ts.URL+"/", 5*time.Second)
	ctx := context.Background()

	ans, err := c.Ask(ctx, "Weather in Paris?")
	if err != nil || ans.Answer != "sunny" || ans.Question != "Weather in Paris?" {
		t.Fatalf("Ask = %+v, %v", ans, err)
	}

	batch, err := c.AskMany(ctx, []string{"a", "b"})
	if err != nil || len(batch.Results) != 2 || batch.Results[1].Question != "b" {
		t.Fatalf("AskMany = %+v, %v", batch, err)
	}

	info, err := c.Collection(ctx)
	if err != nil || info.Vectors != 4 {
		t.Fatalf("Collection = %+v, %v", info, err)
	}

	if err := c.Clear(ctx); err != nil || !cleared {
		t.Fatalf("Clear: %v (cleared=%v)", err, cleared)
	}

	if _, err := c.Ingest(ctx, "/missing"); err == nil {
		t.Fatal("expected error for 404 ingest")
	}
}
