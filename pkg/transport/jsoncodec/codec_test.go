package jsoncodec

import "testing"

type roundTripMessage struct {
	Expression string   `json:"expression"`
	Principals []string `json:"principals"`
}

func TestCodecRoundTrip(t *testing.T) {
	c := Codec{}
	in := roundTripMessage{Expression: "A&B", Principals: []string{"alice", "bob"}}

	data, err := c.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out roundTripMessage
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.Expression != in.Expression || len(out.Principals) != 2 {
		t.Fatalf("round trip mismatch: got %+v", out)
	}
}

func TestCodecName(t *testing.T) {
	if (Codec{}).Name() != "json" {
		t.Fatalf("expected codec name 'json', got %q", (Codec{}).Name())
	}
}
