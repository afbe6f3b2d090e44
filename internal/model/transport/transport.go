package transport

import (
	"strings"
	"time"
)

// Type 标识交通工具类型。
type Type string

const (
	TypeUnknown Type = "unknown"
	TypeBus     Type = "bus"
	TypeTrain   Type = "train"
	TypeTram    Type = "tram"
)

// ParseType normalises user input into a known Type.
func ParseType(raw string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeBus:
		return TypeBus
	case TypeTrain:
		return TypeTrain
	case TypeTram:
		return TypeTram
	default:
		return TypeUnknown
	}
}

// Transport is a stop/line the user can request arrival times for.
type Transport struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Type        Type      `json:"type"`
	LatestETA   string    `json:"latestEta,omitempty"`
	IsFavorite  bool      `json:"isFavorite"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ETA 是一次到站时间查询的结果。
type ETA struct {
	RequestID  string    `json:"requestId"`
	Code       string    `json:"code"`
	Minutes    int       `json:"minutes"`
	Message    string    `json:"message,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}
