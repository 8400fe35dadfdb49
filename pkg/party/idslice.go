package party

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// IDSlice is a set of participants, kept in increasing order.
type IDSlice []ID

// NewIDSlice returns a sorted copy of ids.
func NewIDSlice(ids []ID) IDSlice {
	s := make(IDSlice, len(ids))
	copy(s, ids)
	s.Sort()
	return s
}

// FromKeys returns the sorted set of keys of a map indexed by ID.
func FromKeys[V any](m map[ID]V) IDSlice {
	s := make(IDSlice, 0, len(m))
	for id := range m {
		s = append(s, id)
	}
	s.Sort()
	return s
}

func (partyIDs IDSlice) Len() int           { return len(partyIDs) }
func (partyIDs IDSlice) Less(i, j int) bool { return partyIDs[i] < partyIDs[j] }
func (partyIDs IDSlice) Swap(i, j int)      { partyIDs[i], partyIDs[j] = partyIDs[j], partyIDs[i] }

// Sort is a convenience method: x.Sort() calls Sort(x).
func (partyIDs IDSlice) Sort() { sort.Sort(partyIDs) }

// Valid returns an error if partyIDs is unsorted, contains duplicates or the zero ID.
func (partyIDs IDSlice) Valid() error {
	for i, id := range partyIDs {
		if err := id.Validate(); err != nil {
			return err
		}
		if i > 0 && partyIDs[i-1] >= id {
			return errors.New("party: IDSlice must be sorted and free of duplicates")
		}
	}
	return nil
}

// Contains returns true if partyIDs contains id.
// Assumes that partyIDs is sorted.
func (partyIDs IDSlice) Contains(id ID) bool {
	_, ok := partyIDs.Search(id)
	return ok
}

// Search returns the index of x in partyIDs, and whether it was found.
func (partyIDs IDSlice) Search(x ID) (int, bool) {
	index := sort.Search(len(partyIDs), func(i int) bool { return partyIDs[i] >= x })
	if index < len(partyIDs) && partyIDs[index] == x {
		return index, true
	}
	return 0, false
}

// Equal returns true if both slices contain the same IDs in the same order.
func (partyIDs IDSlice) Equal(other IDSlice) bool {
	if len(partyIDs) != len(other) {
		return false
	}
	for i := range partyIDs {
		if partyIDs[i] != other[i] {
			return false
		}
	}
	return true
}

// Remove returns a new sorted slice without id.
func (partyIDs IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(partyIDs))
	for _, p := range partyIDs {
		if p != id {
			out = append(out, p)
		}
	}
	return out
}

// MatchKeys returns an error unless the keys of m are exactly partyIDs.
func MatchKeys[V any](partyIDs IDSlice, m map[ID]V) error {
	if len(m) != len(partyIDs) {
		return fmt.Errorf("party: expected %d entries, got %d", len(partyIDs), len(m))
	}
	for _, id := range partyIDs {
		if _, ok := m[id]; !ok {
			return fmt.Errorf("party: missing entry for %s", id)
		}
	}
	return nil
}

// WriteTo implements io.WriterTo and should be used within the hash.Hash function.
func (partyIDs IDSlice) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, binary.BigEndian, uint32(len(partyIDs))); err != nil {
		return 0, err
	}
	nAll := int64(4)
	for _, id := range partyIDs {
		n, err := id.WriteTo(w)
		nAll += n
		if err != nil {
			return nAll, err
		}
	}
	return nAll, nil
}

// Domain implements hash.WriterToWithDomain, and separates this type within hash.Hash.
func (IDSlice) Domain() string {
	return "IDSlice"
}
