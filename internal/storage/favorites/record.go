package favorites

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zhouzirui/transport-eta/backend/internal/model/transport"
)

// Record is the storable form of a favorite transport.
type Record struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Code        string         `json:"code"`
	Type        transport.Type `json:"type"`
	LatestETA   string         `json:"latestEta,omitempty"`
	IsFavorite  bool           `json:"isFavorite"`
	LastUpdated time.Time      `json:"lastUpdated"`
	Slot        *Slot          `json:"slot,omitempty"`
}

func (r Record) clone() Record {
	if r.Slot != nil {
		slot := *r.Slot
		r.Slot = &slot
	}
	return r
}

// Mapper converts between the domain entity, the storable record and its
// serialized form.
type Mapper interface {
	ToModel(entity transport.Transport) Record
	ToEntity(record Record) transport.Transport
	Serialize(record Record) (string, error)
	Deserialize(raw string) (Record, error)
}

// JSONMapper serializes records as JSON objects.
type JSONMapper struct{}

var _ Mapper = JSONMapper{}

func (JSONMapper) ToModel(entity transport.Transport) Record {
	return Record{
		ID:          entity.ID,
		Name:        entity.Name,
		Code:        entity.Code,
		Type:        entity.Type,
		LatestETA:   entity.LatestETA,
		IsFavorite:  entity.IsFavorite,
		LastUpdated: entity.LastUpdated.UTC(),
	}
}

func (JSONMapper) ToEntity(record Record) transport.Transport {
	return transport.Transport{
		ID:          record.ID,
		Name:        record.Name,
		Code:        record.Code,
		Type:        record.Type,
		LatestETA:   record.LatestETA,
		IsFavorite:  record.IsFavorite,
		LastUpdated: record.LastUpdated,
	}
}

func (JSONMapper) Serialize(record Record) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("encode record %s: %w", record.ID, err)
	}
	return string(data), nil
}

func (JSONMapper) Deserialize(raw string) (Record, error) {
	var record Record
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}
