// Package cli provides output formatting and an HTTP client for the kotae CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// Status is the shape of GET /api/v1/status.
type Status struct {
	Chunks          int64                  `json:"chunks"`
	ServiceLoaded   bool                   `json:"service_loaded"`
	Generation      int64                  `json:"generation"`
	SnapshotID      string                 `json:"snapshot_id,omitempty"`
	Source          string                 `json:"source,omitempty"`
	DocumentPath    string                 `json:"document_path,omitempty"`
	IngestedAt      *time.Time             `json:"ingested_at,omitempty"`
	VectorIndexSize int                    `json:"vector_index_size"`
	VectorIndexType string                 `json:"vector_index_type,omitempty"`
	DiskUsage       *storage.DiskUsage     `json:"disk_usage,omitempty"`
	Config          map[string]interface{} `json:"config,omitempty"`
}

// WriteAnswer writes an answer to w in the given format.
func WriteAnswer(w io.Writer, ans *models.SynthesizedAnswer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, ans)
	}
	writeAnswerText(w, ans)
	return nil
}

func writeAnswerText(w io.Writer, ans *models.SynthesizedAnswer) {
	fmt.Fprintf(w, "\n%s\n", ans.Answer)
	if len(ans.Results) > 0 {
		fmt.Fprintf(w, "\nFuentes (%d, %dms):\n", len(ans.Results), ans.QueryTime)
		for _, r := range ans.Results {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "%d. %s | similitud %.2f%% | fragmento %d\n", r.Rank, r.Source, r.SimilarityPercent, r.ChunkID)
			fmt.Fprintf(w, "%s\n", TruncateWords(strings.Join(strings.Fields(r.Text), " "), 40))
		}
	}
	if len(ans.Suggestions) > 0 {
		fmt.Fprintf(w, "\n¿Quisiste decir?\n")
		for _, s := range ans.Suggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
	fmt.Fprintln(w)
}

// WriteStatus writes a status report to w in the given format.
func WriteStatus(w io.Writer, st *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "service_loaded:     %t\n", st.ServiceLoaded)
	fmt.Fprintf(w, "generation:         %d\n", st.Generation)
	fmt.Fprintf(w, "chunks:             %d   # stored text chunks\n", st.Chunks)
	fmt.Fprintf(w, "vector_index_size:  %d   # vectors in the active index\n", st.VectorIndexSize)
	if st.VectorIndexType != "" {
		fmt.Fprintf(w, "vector_index_type:  %s\n", st.VectorIndexType)
	}
	if st.Source != "" {
		fmt.Fprintf(w, "source:             %s\n", st.Source)
	}
	if st.IngestedAt != nil && !st.IngestedAt.IsZero() {
		fmt.Fprintf(w, "ingested_at:        %s\n", st.IngestedAt.Format(time.RFC3339))
	}
	if st.DiskUsage != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + indices on disk\n", st.DiskUsage.Total)
	}
	if len(st.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		for _, key := range []string{
			"embedding_provider", "embedding_dimensions", "qa_provider", "index_type",
			"chunk_size", "chunk_overlap", "default_top_k", "default_threshold",
			"database_path", "vector_index_path", "keyword_index_path", "watch",
		} {
			if v, ok := st.Config[key]; ok && v != "" {
				fmt.Fprintf(w, "%-20s%v\n", key+":", v)
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Truncate shortens s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
