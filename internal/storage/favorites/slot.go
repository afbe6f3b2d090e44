package favorites

import "fmt"

// Slot is one of the fixed storage locations a favorite can occupy.
type Slot int

const (
	SlotOne Slot = iota
	SlotTwo
	SlotThree

	slotCount = 3
)

var slotKeys = [slotCount]string{"SAVE_SLOT_ONE", "SAVE_SLOT_TWO", "SAVE_SLOT_THREE"}

// Slots returns every slot in allocation order.
func Slots() []Slot {
	return []Slot{SlotOne, SlotTwo, SlotThree}
}

// Capacity is the maximum number of records a Store holds.
func Capacity() int { return slotCount }

// Valid reports whether s is one of the known slots.
func (s Slot) Valid() bool {
	return s >= SlotOne && s < slotCount
}

// Key returns the dictionary key backing the slot.
func (s Slot) Key() string {
	if !s.Valid() {
		return ""
	}
	return slotKeys[s]
}

func (s Slot) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Slot(%d)", int(s))
	}
	return slotKeys[s]
}

// ParseSlot resolves a dictionary key back to its slot.
func ParseSlot(key string) (Slot, error) {
	for i, k := range slotKeys {
		if k == key {
			return Slot(i), nil
		}
	}
	return 0, fmt.Errorf("unknown slot %q", key)
}

func (s Slot) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid slot %d", int(s))
	}
	return []byte(s.Key()), nil
}

func (s *Slot) UnmarshalText(text []byte) error {
	parsed, err := ParseSlot(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
