package format

import "testing"

func TestFromFilename(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"export.csv", KindCSV},
		{"EXPORT.CSV", KindCSV},
		{"access.log", KindApache},
		{"access.txt", KindApache},
		{"dump.bin", KindUnknown},
		{"noextension", KindUnknown},
	}
	for _, tt := range tests {
		if got := FromFilename(tt.name); got != tt.want {
			t.Errorf("FromFilename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFromSample(t *testing.T) {
	tests := []struct {
		line string
		want Kind
	}{
		{`127.0.0.1 - - [10/Oct/2000:13:55:36 -0700] "GET / HTTP/1.0" 200 2326`, KindApache},
		{`{"level":"info","msg":"hello"}`, KindJSON},
		{`[{"a":1}]`, KindJSON},
		{`#Fields: date time cs-method`, KindW3C},
		{`some free text line`, KindText},
		{``, KindUnknown},
		{`   `, KindUnknown},
	}
	for _, tt := range tests {
		if got := FromSample(tt.line); got != tt.want {
			t.Errorf("FromSample(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	// Filename wins when decisive.
	if got := Detect("x.csv", `{"json":true}`); got != KindCSV {
		t.Fatalf("Detect csv = %q", got)
	}
	// Otherwise the sample decides.
	if got := Detect("upload.bin", `1.2.3.4 - - [10/Oct/2000:13:55:36 +0000] "GET / HTTP/1.0" 200 5`); got != KindApache {
		t.Fatalf("Detect sample = %q", got)
	}
}

func TestParseable(t *testing.T) {
	for _, k := range []Kind{KindCSV, KindApache} {
		if !k.Parseable() {
			t.Errorf("%q should be parseable", k)
		}
	}
	for _, k := range []Kind{KindJSON, KindW3C, KindText, KindUnknown} {
		if k.Parseable() {
			t.Errorf("%q should not be parseable", k)
		}
	}
}
