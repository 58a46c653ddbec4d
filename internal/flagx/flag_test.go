package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value kept",
			args:    []string{"-a", "1.2.3.4:5432", "-x", "junk"},
			allowed: []string{"-a"},
			want:    []string{"-a", "1.2.3.4:5432"},
		},
		{
			name:    "equals form kept",
			args:    []string{"--config=conf.json", "-other=zzz"},
			allowed: []string{"--config"},
			want:    []string{"--config=conf.json"},
		},
		{
			name:    "flag without value",
			args:    []string{"-v", "-a", "x"},
			allowed: []string{"-v"},
			want:    []string{"-v"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "x"},
			allowed: nil,
			want:    []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterArgs(tc.args, tc.allowed)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	os.Args = []string{"decksync", "-c", "conf.json", "-a", "addr"}
	assert.Equal(t, "conf.json", JsonConfigFlags())

	os.Args = []string{"decksync", "--config=other.json"}
	assert.Equal(t, "other.json", JsonConfigFlags())

	os.Args = []string{"decksync", "-a", "addr"}
	assert.Equal(t, "", JsonConfigFlags())
}
