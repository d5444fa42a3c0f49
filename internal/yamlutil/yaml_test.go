package yamlutil_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/alnah/go-marimo2confluence/internal/yamlutil"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	var s sample
	err := yamlutil.UnmarshalStrict([]byte("name: demo\ncount: 3\n"), &s)
	if err != nil {
		t.Fatalf("UnmarshalStrict: %v", err)
	}
	if s.Name != "demo" || s.Count != 3 {
		t.Errorf("decoded = %+v", s)
	}
}

func TestUnmarshalStrictRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	var s sample
	err := yamlutil.UnmarshalStrict([]byte("name: demo\nnmae: typo\n"), &s)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestUnmarshalStrictInputChecks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
	}{
		{"nil data", nil, &sample{}, yamlutil.ErrNilData},
		{"empty data", []byte{}, &sample{}, yamlutil.ErrNilData},
		{"nil destination", []byte("a: 1"), nil, yamlutil.ErrNilDestination},
		{"oversized input", bytes.Repeat([]byte("a"), yamlutil.MaxInputSize+1), &sample{}, yamlutil.ErrInputTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.UnmarshalStrict(tt.data, tt.dest)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UnmarshalStrict() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
