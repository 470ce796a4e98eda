package domain

import (
	"time"

	"github.com/google/uuid"
)

// RatesRepairedEvent is the message payload published when a drifted
// (worker, date) assignment group has been corrected.
type RatesRepairedEvent struct {
	WorkerID  uuid.UUID `json:"worker_id"`
	Date      string    `json:"date"`
	Applied   int       `json:"applied"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// TransferEvent is the message payload published when a transfer record is
// created or changes status.
type TransferEvent struct {
	TransferID        uuid.UUID `json:"transfer_id"`
	OriginSiteID      uuid.UUID `json:"origin_site_id"`
	DestinationSiteID uuid.UUID `json:"destination_site_id"`
	Amount            int64     `json:"amount"`
	Status            string    `json:"status"`
	Timestamp         time.Time `json:"timestamp"`
}
