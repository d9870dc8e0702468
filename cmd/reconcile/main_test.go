package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{
			name: "single subscription",
			args: []string{"--subscription", "sub_1"},
			want: options{subscriptionID: "sub_1", status: "active"},
		},
		{
			name: "all with status",
			args: []string{"--all", "--status", "past_due"},
			want: options{all: true, status: "past_due"},
		},
		{
			name: "grant credits",
			args: []string{"--subscription", "sub_1", "--grant-credits"},
			want: options{subscriptionID: "sub_1", status: "active", grantCredits: true},
		},
		{
			name:    "neither",
			args:    nil,
			wantErr: true,
		},
		{
			name:    "both",
			args:    []string{"--all", "--subscription", "sub_1"},
			wantErr: true,
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
