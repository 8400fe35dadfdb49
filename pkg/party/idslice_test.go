package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDSlice_Search(t *testing.T) {
	tests := []struct {
		name        string
		partyIDs    IDSlice
		requestedID ID
		want        int
		found       bool
	}{
		{"empty", IDSlice{}, 1, 0, false},
		{"first", IDSlice{1, 2, 3}, 1, 0, true},
		{"last", IDSlice{1, 2, 3}, 3, 2, true},
		{"missing", IDSlice{1, 3}, 2, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := tt.partyIDs.Search(tt.requestedID)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIDSlice_Valid(t *testing.T) {
	assert.NoError(t, IDSlice{1, 2, 5}.Valid())
	assert.Error(t, IDSlice{0, 1}.Valid())
	assert.Error(t, IDSlice{2, 1}.Valid())
	assert.Error(t, IDSlice{1, 1}.Valid())
}

func TestNewIDSlice(t *testing.T) {
	in := []ID{3, 1, 2}
	s := NewIDSlice(in)
	assert.Equal(t, IDSlice{1, 2, 3}, s)
	assert.Equal(t, []ID{3, 1, 2}, in)
	assert.Equal(t, IDSlice{1, 3}, s.Remove(2))
	assert.True(t, s.Equal(FromKeys(map[ID]string{2: "", 3: "", 1: ""})))
}

func TestMatchKeys(t *testing.T) {
	ids := IDSlice{1, 2}
	assert.NoError(t, MatchKeys(ids, map[ID]int{1: 0, 2: 0}))
	assert.Error(t, MatchKeys(ids, map[ID]int{1: 0}))
	assert.Error(t, MatchKeys(ids, map[ID]int{1: 0, 3: 0}))
}

func TestIDFromString(t *testing.T) {
	id, err := IDFromString("42")
	require.NoError(t, err)
	assert.Equal(t, ID(42), id)
	_, err = IDFromString("0")
	assert.Error(t, err)
	_, err = IDFromString("70000")
	assert.Error(t, err)
}
