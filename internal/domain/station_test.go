package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStation(t *testing.T) {
	t.Run("isd-history row", func(t *testing.T) {
		ref, err := ParseStation(`"010010","99999","JAN MAYEN(NOR-NAVY)","NO","","ENJA","+70.933","-008.667","+0009.0","19310101","20200505"`)

		require.NoError(t, err)
		assert.Equal(t, StationReference{USAF: "010010", WBAN: "99999", Country: "NO"}, ref)
		assert.Equal(t, "01001099999", ref.Key())
	})

	t.Run("unquoted minimal row", func(t *testing.T) {
		ref, err := ParseStation("1,2,SOMEWHERE,DE")
		require.NoError(t, err)
		assert.Equal(t, "DE", ref.Country)
	})

	t.Run("comma inside station name", func(t *testing.T) {
		ref, err := ParseStation(`"722950","23174","LOS ANGELES, CA","US"`)
		require.NoError(t, err)
		assert.Equal(t, "US", ref.Country)
	})

	t.Run("empty country allowed", func(t *testing.T) {
		ref, err := ParseStation(`"999999","00100","UNKNOWN",""`)
		require.NoError(t, err)
		assert.Empty(t, ref.Country)
	})

	t.Run("too few columns", func(t *testing.T) {
		_, err := ParseStation(`"010010","99999","JAN MAYEN"`)

		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "station", perr.Kind)
	})

	t.Run("empty usaf", func(t *testing.T) {
		_, err := ParseStation(`"","99999","X","NO"`)

		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "usaf", perr.Field)
	})

	t.Run("empty wban", func(t *testing.T) {
		_, err := ParseStation(`"010010"," ","X","NO"`)

		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "wban", perr.Field)
	})

	t.Run("empty line", func(t *testing.T) {
		_, err := ParseStation("")
		require.Error(t, err)
	})
}

func TestStationIndex_Lookup(t *testing.T) {
	idx := NewStationIndex([]StationReference{
		{USAF: "010010", WBAN: "99999", Country: "NO"},
		{USAF: "724940", WBAN: "23234", Country: "US"},
	})

	country, ok := idx.Lookup("010010", "99999")
	assert.True(t, ok)
	assert.Equal(t, "NO", country)

	_, ok = idx.Lookup("010010", "00000")
	assert.False(t, ok)

	assert.Equal(t, 2, idx.Len())
}

func TestStationIndex_LastWriteWins(t *testing.T) {
	idx := NewStationIndex([]StationReference{
		{USAF: "1", WBAN: "2", Country: "DE"},
		{USAF: "1", WBAN: "2", Country: "AT"},
	})

	country, ok := idx.Lookup("1", "2")
	require.True(t, ok)
	assert.Equal(t, "AT", country)
	assert.Equal(t, 1, idx.Len())
}

func TestStationIndex_NotAffectedByCallerSlice(t *testing.T) {
	entries := []StationReference{{USAF: "1", WBAN: "2", Country: "DE"}}
	idx := NewStationIndex(entries)

	entries[0].Country = "FR"

	country, _ := idx.Lookup("1", "2")
	assert.Equal(t, "DE", country)
}

func TestStationIndex_Empty(t *testing.T) {
	idx := NewStationIndex(nil)
	_, ok := idx.Lookup("1", "2")
	assert.False(t, ok)
	assert.Zero(t, idx.Len())

	var nilIdx *StationIndex
	_, ok = nilIdx.Lookup("1", "2")
	assert.False(t, ok)
}

func TestStationIndex_ConcurrentLookups(t *testing.T) {
	entries := make([]StationReference, 100)
	for i := range entries {
		entries[i] = StationReference{USAF: fmt.Sprintf("%06d", i), WBAN: "99999", Country: "C" + fmt.Sprint(i%7)}
	}
	idx := NewStationIndex(entries)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range entries {
				country, ok := idx.Lookup(entries[i].USAF, entries[i].WBAN)
				assert.True(t, ok)
				assert.Equal(t, entries[i].Country, country)
			}
		}()
	}
	wg.Wait()
}
