package realtime

import "testing"

func TestAggregatorSpacing(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{"two words", []string{"hello", "world"}, "hello world"},
		{"empty first", []string{"", "world"}, "world"},
		{"whitespace only", []string{"  ", "\n"}, ""},
		{"trims segments", []string{"  hello ", " world  "}, "hello world"},
		{"skips blank middle", []string{"one", " ", "three"}, "one three"},
		{"unicode", []string{"سلام", "دنیا"}, "سلام دنیا"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a aggregator
			for _, s := range tt.segments {
				a.append(s, "")
			}
			if got := a.result().Text; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAggregatorRunningTotals(t *testing.T) {
	var a aggregator
	text, tr := a.append("hello", "salam")
	if text != "hello" || tr != "salam" {
		t.Errorf("first append = %q, %q", text, tr)
	}
	text, tr = a.append("world", "")
	if text != "hello world" || tr != "salam" {
		t.Errorf("second append = %q, %q", text, tr)
	}
	res := a.result()
	if res.Text != "hello world" || res.Translation != "salam" {
		t.Errorf("result = %+v", res)
	}
}
