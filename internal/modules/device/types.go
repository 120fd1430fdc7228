package device

import "github.com/smartdoorlock/core/internal/models"

type RequestPairingDTO struct {
	DeviceID string `json:"device_id" form:"device_id"`
}

type pairingResponse struct {
	Token string `json:"token"`
}

type deviceResponse struct {
	Token      string              `json:"token"`
	Cards      []models.Card       `json:"cards"`
	Status     models.DeviceStatus `json:"status"`
	DoorStatus models.DoorStatus   `json:"door_status"`
	Online     bool                `json:"online"`
	AddCard    bool                `json:"add_card"`
}

func toResponse(d *models.DeviceModel) deviceResponse {
	cards := d.Cards
	if cards == nil {
		cards = []models.Card{}
	}
	return deviceResponse{
		Token:      d.SessionToken,
		Cards:      cards,
		Status:     d.Status,
		DoorStatus: d.DoorStatus,
		Online:     d.Online,
		AddCard:    d.AddCard,
	}
}
