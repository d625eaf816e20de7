package main

import "testing"

func TestReadReportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    reportFormat
		wantErr bool
	}{
		{"", reportPretty, false},
		{"pretty", reportPretty, false},
		{"JSON", reportJSON, false},
		{" short ", reportShort, false},
		{"sarif", "", true},
	}
	for _, tt := range tests {
		got, err := readReportFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("readReportFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("readReportFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadUIMode(t *testing.T) {
	for in, want := range map[string]uiMode{
		"":     uiModeAuto,
		"auto": uiModeAuto,
		"ON":   uiModeOn,
		"off":  uiModeOff,
	} {
		got, err := readUIMode(in)
		if err != nil {
			t.Errorf("readUIMode(%q) error = %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("readUIMode(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := readUIMode("tui"); err == nil {
		t.Error("readUIMode(\"tui\") accepted an invalid value")
	}
}
