package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiltdb/quilt/internal/record"
)

func TestValidateMatch(t *testing.T) {
	tests := []struct {
		name    string
		m       Match
		wantErr string
	}{
		{
			name: "valid single condition",
			m:    Match{"realmId": record.String("rlm~l1")},
		},
		{
			name: "valid multiple conditions",
			m: Match{
				"realmId":    record.String("alice"),
				"todoListId": record.String("l1"),
			},
		},
		{
			name:    "empty predicate",
			m:       Match{},
			wantErr: "at least one condition",
		},
		{
			name:    "empty field name",
			m:       Match{"": record.String("x")},
			wantErr: "field name",
		},
		{
			name:    "non-scalar value",
			m:       Match{"tags": record.Array{record.String("a")}},
			wantErr: "scalar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMatch(tt.m)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateSet(t *testing.T) {
	tests := []struct {
		name    string
		s       Set
		wantErr string
	}{
		{
			name: "valid assignment",
			s:    Set{"done": record.Bool(true)},
		},
		{
			name:    "empty mutation",
			s:       Set{},
			wantErr: "at least one field",
		},
		{
			name:    "id assignment forbidden",
			s:       Set{"id": record.String("new-id")},
			wantErr: "id field",
		},
		{
			name:    "non-scalar value",
			s:       Set{"perm": record.Object{"add": record.Bool(true)}},
			wantErr: "scalar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSet(tt.s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMatchObjectRoundTrip(t *testing.T) {
	m := Match{
		"realmId": record.String("rlm~l1"),
		"done":    record.Bool(false),
	}
	got := MatchFromObject(m.ToObject())
	assert.Equal(t, m, got)
}
