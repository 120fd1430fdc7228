package models

import "time"

// DeviceStatus is the pairing phase of a device. It only moves pairing -> paired.
type DeviceStatus string

const (
	DeviceStatusPairing DeviceStatus = "pairing"
	DeviceStatusPaired  DeviceStatus = "paired"
)

// DoorStatus is the last accepted lock state of the door.
type DoorStatus string

const (
	DoorLocked   DoorStatus = "locked"
	DoorUnlocked DoorStatus = "unlocked"
)

// Document field names shared by every store backend.
const (
	FieldDeviceID           = "device_id"
	FieldSessionToken       = "session_token"
	FieldPairingRequestedAt = "pairing_requested_at"
	FieldPairingCompletedAt = "pairing_completed_at"
	FieldStatus             = "status"
	FieldDoorStatus         = "door_status"
	FieldOnline             = "online"
	FieldAddCard            = "add_card"
	FieldCards              = "cards"
)

// Card is an RFID card authorized on a lock. Name is set by the mobile client.
type Card struct {
	Card string  `json:"card" bson:"card" firestore:"card"`
	Name *string `json:"name" bson:"name" firestore:"name"`
}

// DeviceModel is the persistent record of one paired lock, keyed by session token.
type DeviceModel struct {
	SessionToken       string       `json:"token"                bson:"_id"                  firestore:"session_token"`
	DeviceID           string       `json:"device_id"            bson:"device_id"            firestore:"device_id"`
	PairingRequestedAt time.Time    `json:"pairing_requested_at" bson:"pairing_requested_at" firestore:"pairing_requested_at"`
	PairingCompletedAt *time.Time   `json:"pairing_completed_at" bson:"pairing_completed_at" firestore:"pairing_completed_at"`
	Status             DeviceStatus `json:"status"               bson:"status"               firestore:"status"`
	DoorStatus         DoorStatus   `json:"door_status"          bson:"door_status"          firestore:"door_status"`
	Online             bool         `json:"online"               bson:"online"               firestore:"online"`
	AddCard            bool         `json:"add_card"             bson:"add_card"             firestore:"add_card"`
	Cards              []Card       `json:"cards"                bson:"cards"                firestore:"cards"`
}

// Locked reports whether the record says the door should be locked.
func (d *DeviceModel) Locked() bool {
	return d.DoorStatus == DoorLocked
}

// HasCard reports whether card is already enrolled.
func (d *DeviceModel) HasCard(card string) bool {
	for _, c := range d.Cards {
		if c.Card == card {
			return true
		}
	}
	return false
}

// CardIDs returns the enrolled card identifiers in stored order.
func (d *DeviceModel) CardIDs() []string {
	ids := make([]string, 0, len(d.Cards))
	for _, c := range d.Cards {
		ids = append(ids, c.Card)
	}
	return ids
}

// Clone returns a deep copy safe to hand out of a store.
func (d *DeviceModel) Clone() *DeviceModel {
	if d == nil {
		return nil
	}
	out := *d
	if d.PairingCompletedAt != nil {
		t := *d.PairingCompletedAt
		out.PairingCompletedAt = &t
	}
	out.Cards = make([]Card, len(d.Cards))
	for i, c := range d.Cards {
		out.Cards[i] = Card{Card: c.Card}
		if c.Name != nil {
			name := *c.Name
			out.Cards[i].Name = &name
		}
	}
	return &out
}
