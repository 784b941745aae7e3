// Package cli renders answers and collection status for the kotae command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// passagePreview is how many runes of each retrieved passage text output shows.
const passagePreview = 200

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes one answered question to w in the given format.
func WriteAnswer(w io.Writer, resp *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	writeAnswerText(w, resp, true)
	return nil
}

func writeAnswerText(w io.Writer, resp *models.QueryResponse, details bool) {
	fmt.Fprintf(w, "Question: %s\n", resp.Question)
	fmt.Fprintf(w, "Route:    %s\n", resp.Route)
	if resp.ProcessingTime > 0 {
		fmt.Fprintf(w, "Time:     %.2fs\n", resp.ProcessingTime)
	}
	fmt.Fprintf(w, "\n%s\n", resp.Answer)

	if details {
		if resp.WeatherData != nil {
			wd := resp.WeatherData
			fmt.Fprintln(w, "\n--- Weather ---")
			fmt.Fprintf(w, "%s, %s: %s°C (feels like %s°C), humidity %s%%, wind %s m/s, %s\n",
				wd.Name, wd.Country,
				utils.FormatNumber(wd.TempC), utils.FormatNumber(wd.FeelsLikeC),
				utils.FormatNumber(wd.HumidityPct), utils.FormatNumber(wd.WindSpeed), wd.Description)
		}
		if len(resp.RetrievedDocs) > 0 {
			fmt.Fprintln(w, "\n--- Passages ---")
			for i, doc := range resp.RetrievedDocs {
				score := ""
				if i < len(resp.RerankScores) {
					score = fmt.Sprintf(" (score %.4f)", resp.RerankScores[i])
				}
				fmt.Fprintf(w, "[%d]%s %s\n", i+1, score, utils.Truncate(oneLine(doc), passagePreview))
			}
		}
	}
	writeEvaluationText(w, resp.Evaluation)
}

func writeEvaluationText(w io.Writer, ev *models.Evaluation) {
	if ev == nil {
		return
	}
	if ev.Failed() {
		fmt.Fprintf(w, "\nEvaluation: %s\n", ev.Error)
		return
	}
	fmt.Fprintf(w, "\nEvaluation: relevance %d/10, accuracy %d/10, completeness %d/10\n",
		ev.Relevance, ev.Accuracy, ev.Completeness)
}

// WriteBatch writes the results of a batch run to w in the given format.
func WriteBatch(w io.Writer, resp *models.BatchQueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	failed := 0
	for i, r := range resp.Results {
		if r.Route == models.RouteError {
			failed++
		}
		fmt.Fprintf(w, "═══ %d/%d ═══\n", i+1, len(resp.Results))
		writeAnswerText(w, r, false)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d question(s), %d failed, %.2fs total\n", len(resp.Results), failed, resp.TotalTime)
	return nil
}

// WriteCollectionInfo writes collection statistics to w in the given format.
func WriteCollectionInfo(w io.Writer, info *models.CollectionInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, info)
	}
	if info.Name != "" {
		fmt.Fprintf(w, "collection:  %s\n", info.Name)
	}
	fmt.Fprintf(w, "backend:     %s\n", info.Backend)
	fmt.Fprintf(w, "documents:   %d   # ingested files\n", info.Documents)
	fmt.Fprintf(w, "chunks:      %d   # stored passages\n", info.Chunks)
	fmt.Fprintf(w, "vectors:     %d   # points in the vector index\n", info.Vectors)
	if info.DiskBytes > 0 {
		fmt.Fprintf(w, "disk_bytes:  %d   # database + index on disk\n", info.DiskBytes)
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
