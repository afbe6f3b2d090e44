package favorites

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/transport-eta/backend/internal/model/transport"
)

func TestJSONMapperRoundTrip(t *testing.T) {
	slot := SlotTwo
	records := []Record{
		{ID: "a", Name: "Harbour", Code: "1234", Type: transport.TypeTram, IsFavorite: true,
			LastUpdated: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), Slot: &slot},
		{ID: "b", Name: "Airport", Code: "77", Type: transport.TypeBus, LatestETA: "4 min"},
	}

	mapper := JSONMapper{}
	for _, record := range records {
		raw, err := mapper.Serialize(record)
		require.NoError(t, err)

		got, err := mapper.Deserialize(raw)
		require.NoError(t, err)
		if diff := cmp.Diff(record, got); diff != "" {
			t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestJSONMapperEncodesSlotByName(t *testing.T) {
	slot := SlotThree
	raw, err := JSONMapper{}.Serialize(Record{ID: "x", Slot: &slot})
	require.NoError(t, err)
	assert.Contains(t, raw, `"slot":"SAVE_SLOT_THREE"`)

	_, err = JSONMapper{}.Deserialize(`{"id":"x","slot":"SAVE_SLOT_NINE"}`)
	require.Error(t, err)
}

func TestJSONMapperEntityConversion(t *testing.T) {
	entity := transport.Transport{
		ID:          "id-1",
		Name:        "Central",
		Code:        "555",
		Type:        transport.TypeTrain,
		LatestETA:   "12 min",
		IsFavorite:  true,
		LastUpdated: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	mapper := JSONMapper{}
	record := mapper.ToModel(entity)
	assert.Nil(t, record.Slot)
	assert.Equal(t, entity, mapper.ToEntity(record))
}

func TestSlotKeys(t *testing.T) {
	for _, slot := range Slots() {
		parsed, err := ParseSlot(slot.Key())
		require.NoError(t, err)
		assert.Equal(t, slot, parsed)
	}
	assert.Equal(t, "SAVE_SLOT_ONE", SlotOne.String())
	assert.False(t, Slot(3).Valid())
	assert.Equal(t, "", Slot(-1).Key())
}
