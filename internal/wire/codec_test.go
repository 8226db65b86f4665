package wire

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestMarshalRoundTrip(t *testing.T) {
	in := MarkAttendanceRequest{
		SessionID:      "CSC101-A",
		Name:           "Ada",
		ParticipantKey: "U19CS1001",
		Timestamp:      1700000000,
	}
	payload, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		t.Fatalf("payload is not transport-safe base64: %v", err)
	}

	var out MarkAttendanceRequest
	if err := Unmarshal(payload, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Errorf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var req CreateSessionRequest
	if err := Unmarshal("not base64!!", &req); err == nil {
		t.Error("expected transport decode error")
	}
	garbageJSON := base64.StdEncoding.EncodeToString([]byte("{nope"))
	if err := Unmarshal(garbageJSON, &req); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("expected decode error, got %v", err)
	}
}
