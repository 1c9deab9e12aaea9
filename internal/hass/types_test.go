package hass

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimeIn(t *testing.T) {
	loc := time.FixedZone("UTC-4", -4*3600)

	testCases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "offset", raw: `"2025-06-02T12:00:00Z"`, want: time.Date(2025, 6, 2, 8, 0, 0, 0, loc)},
		{name: "no offset", raw: `"2025-06-02T12:00:00"`, want: time.Date(2025, 6, 2, 12, 0, 0, 0, loc)},
		{name: "dateTime object without offset", raw: `{"dateTime":"2025-06-02T07:30:00"}`, want: time.Date(2025, 6, 2, 7, 30, 0, 0, loc)},
		{name: "date only", raw: `{"date":"2025-06-02"}`, want: time.Date(2025, 6, 2, 0, 0, 0, 0, loc)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var ts Time
			if err := json.Unmarshal([]byte(tc.raw), &ts); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tc.raw, err)
			}
			if got := ts.In(loc); !got.Equal(tc.want) {
				t.Errorf("In() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRemoteEventRecurrenceID(t *testing.T) {
	var ev RemoteEvent
	raw := `{"uid":"soccer@ha","recurrence_id":"20250609T153000Z","start":"2025-06-09T15:30:00Z","end":"2025-06-09T17:00:00Z"}`
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if ev.UID != "soccer@ha" || ev.RecurrenceID != "20250609T153000Z" {
		t.Errorf("decoded %+v", ev)
	}
}

func TestFailedEntityIDs(t *testing.T) {
	if ids := FailedEntityIDs(nil); ids != nil {
		t.Errorf("FailedEntityIDs(nil) = %v, want nil", ids)
	}
	ids := FailedEntityIDs([]EntityFailure{{EntityID: "calendar.a"}, {EntityID: "calendar.b"}})
	if len(ids) != 2 || ids[0] != "calendar.a" || ids[1] != "calendar.b" {
		t.Errorf("FailedEntityIDs() = %v", ids)
	}
}
