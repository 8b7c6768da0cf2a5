package model

import "fmt"

// BatchRequest is the payload posted to the activities endpoint.
type BatchRequest struct {
	Data []Event

	// TestEventCode makes the Graph API validate events without processing them.
	TestEventCode *string
	PartnerAgent  *string
	NamespaceID   *string
	UploadID      *string
	UploadTag     *string
	UploadSource  *string
}

// Validate checks that the request can be sent.
func (r *BatchRequest) Validate() error {
	if r == nil {
		return ErrNilRequest
	}

	if len(r.Data) == 0 {
		return ErrNoEvents
	}

	for i := range r.Data {
		if err := r.Data[i].Validate(); err != nil {
			return fmt.Errorf("data[%d]: %w", i, err)
		}
	}

	return nil
}
