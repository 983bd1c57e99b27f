package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tourguide/pkg/logging"
	"tourguide/pkg/model"
)

func TestFormatLogLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Attributes Sorted And Long Values Dropped",
			input: `time=2026-05-01T10:15:02.074+02:00 level=INFO msg="Catalog loaded" source=http://localhost:1337/api regions=42 rejected=1`,
			want:  "10:15:02 Catalog loaded (regions=42, rejected=1)",
		},
		{
			name:  "Quoted Value With Trailing Space",
			input: `time=2026-05-01T10:15:03+02:00 level=WARN msg="Region rejected" reason="duplicate id " id=7`,
			want:  "10:15:03 Region rejected (id=7, reason=duplicate id)",
		},
		{
			name:  "Unstructured Line",
			input: "plain text",
			want:  "plain text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatLogLine(tt.input); got != tt.want {
				t.Errorf("formatLogLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHandleEventLog(t *testing.T) {
	logging.LogEvent(&model.Event{Type: model.EventEnter, Region: model.Region{ID: 1, Name: "Kapu"}, Distance: 12})
	logging.LogEvent(&model.Event{Type: model.EventEnter, Region: model.Region{ID: 2, Name: "Torony"}, Distance: 40})

	req := httptest.NewRequest(http.MethodGet, "/api/log/events?n=1", http.NoBody)
	w := httptest.NewRecorder()
	handleEventLog(w, req)

	var body struct {
		Lines []string `json:"lines"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Lines) != 1 {
		t.Fatalf("lines = %v", body.Lines)
	}
	if want := "Entered Torony (40m)"; len(body.Lines[0]) < len(want) || body.Lines[0][len(body.Lines[0])-len(want):] != want {
		t.Errorf("last line = %q, want suffix %q", body.Lines[0], want)
	}
}
