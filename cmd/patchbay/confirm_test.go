package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestLineConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"  Y  \n", true},
		{"YES", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got := lineConfirm(strings.NewReader(tt.input), &out, "Run it?")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "  ? Run it? [y/N] ", out.String())
		})
	}
}

func TestNewConfirmer(t *testing.T) {
	root := &cobra.Command{Use: "patchbay"}
	root.PersistentFlags().Bool("json", false, "")
	root.SetIn(strings.NewReader("y\n"))
	root.SetOut(&bytes.Buffer{})

	confirmer := newConfirmer(root)
	if assert.NotNil(t, confirmer) {
		ok, err := confirmer.Confirm(t.Context(), "Run it?")
		assert.NoError(t, err)
		assert.True(t, ok)
	}

	assert.NoError(t, root.PersistentFlags().Set("json", "true"))
	assert.Nil(t, newConfirmer(root))
}
