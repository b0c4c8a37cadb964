package input

import "testing"

func TestClassifyURL(t *testing.T) {
	cases := []struct {
		in    string
		isURL bool
	}{
		{"https://example.com/event", true},
		{"http://example.com", true},
		{"https://example.com/path?x=1#frag", true},
		{"ftp://files.example.com/schedule.ics", true},
		{"Dinner with Alex tomorrow at 7pm", false},
		{"", false},
		{"example.com/event", false},     // no scheme
		{"https://", false},              // no host
		{"/relative/path", false},        // relative
		{"mailto:alex@example.com", false}, // no host component
		{"Meeting at https://example.com on Friday", false},
	}

	for _, c := range cases {
		u, ok := ClassifyURL(c.in)
		if ok != c.isURL {
			t.Errorf("ClassifyURL(%q) = %v, want %v", c.in, ok, c.isURL)
		}
		if ok && u == nil {
			t.Errorf("ClassifyURL(%q) returned ok without a URL", c.in)
		}
	}
}

func TestPayloadConstructors(t *testing.T) {
	p := TextPayload("picnic on sunday")
	if p.Kind != KindText || p.Text != "picnic on sunday" {
		t.Fatalf("unexpected text payload: %+v", p)
	}

	img := []byte{0xff, 0xd8, 0xff}
	q := ImagePayload(img)
	if q.Kind != KindImage || len(q.Image) != 3 {
		t.Fatalf("unexpected image payload: %+v", q)
	}
}
