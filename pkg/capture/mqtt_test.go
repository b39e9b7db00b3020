package capture

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFrameDocEncoding(t *testing.T) {
	at := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)
	doc, err := json.Marshal(frameDoc{At: at, Len: 3, Data: "00ff10"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"at":"2026-08-21T09:30:00Z","len":3,"data":"00ff10"}`
	if string(doc) != want {
		t.Errorf("frame document = %s, want %s", doc, want)
	}
}
