package config

import (
	"flag"
	"io"
	"testing"
)

func TestOverrideBool(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		start bool
		want  bool
	}{
		{"Unset keeps config true", nil, true, true},
		{"Unset keeps config false", nil, false, false},
		{"Bare flag sets true", []string{"-replace"}, false, true},
		{"Explicit false overrides config", []string{"-replace=false"}, true, false},
		{"Other flag ignored", []string{"-verbose"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("stage", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			fs.Bool("replace", true, "")
			fs.Bool("verbose", false, "")

			if err := fs.Parse(tt.args); err != nil {
				t.Fatalf("Parse: %v", err)
			}

			got := tt.start
			OverrideBool(fs, "replace", &got)

			if got != tt.want {
				t.Errorf("OverrideBool() = %v, want %v", got, tt.want)
			}
		})
	}
}
