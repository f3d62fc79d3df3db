package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestDisplayShowsProgress(t *testing.T) {
	var buf bytes.Buffer
	bar := New(&buf, 10, 100)

	bar.Display()
	if !strings.Contains(buf.String(), "0.00%") {
		t.Errorf("expected empty bar \n\thave(%q)", buf.String())
	}

	buf.Reset()
	bar.Set(50)
	bar.Display()
	out := buf.String()
	if !strings.Contains(out, "50.00%") {
		t.Errorf("expected half-full bar \n\thave(%q)", out)
	}
	if strings.Count(out, "█") != 5 {
		t.Errorf("incorrect fill \n\twant(%v) \n\thave(%v)", 5,
			strings.Count(out, "█"))
	}
}

func TestIncrementSaturates(t *testing.T) {
	var buf bytes.Buffer
	bar := New(&buf, 10, 2)

	for i := 0; i < 5; i++ {
		bar.Increment()
	}
	bar.Display()
	if !strings.Contains(buf.String(), "100.00%") {
		t.Errorf("expected full bar \n\thave(%q)", buf.String())
	}
}
