package model

import "fmt"

// ClientErrorCode is the code of errors produced on this side of the wire, when the
// Graph API gave no usable answer.
const ClientErrorCode = -1

// Response is the result of posting a batch of events.
type Response struct {
	EventsReceived int       `json:"events_received"`
	EventsDropped  *int      `json:"events_dropped,omitempty"`
	FBTraceID      *string   `json:"fbtrace_id,omitempty"`
	Messages       []string  `json:"messages,omitempty"`
	Error          *APIError `json:"error,omitempty"`
}

// Failed reports whether the response carries an error. A populated error wins over
// any event counts.
func (r *Response) Failed() bool {
	return r.Error != nil
}

// Err returns the response error, or nil when the dispatch succeeded.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}

	return r.Error
}

// Dropped returns the number of dropped events.
func (r *Response) Dropped() int {
	if r.EventsDropped == nil {
		return 0
	}

	return *r.EventsDropped
}

// APIError is the error object returned by the Graph API, or synthesized by the
// client when the Graph API could not be reached or understood.
type APIError struct {
	Message        string  `json:"message"`
	Type           *string `json:"type,omitempty"`
	Code           int     `json:"code"`
	ErrorSubcode   *int    `json:"error_subcode,omitempty"`
	FBTraceID      *string `json:"fbtrace_id,omitempty"`
	IsTransient    *bool   `json:"is_transient,omitempty"`
	ErrorUserTitle *string `json:"error_user_title,omitempty"`
	ErrorUserMsg   *string `json:"error_user_msg,omitempty"`
}

func (e *APIError) Error() string {
	if e.ErrorSubcode != nil {
		return fmt.Sprintf("graph api error %d/%d: %s", e.Code, *e.ErrorSubcode, e.Message)
	}

	return fmt.Sprintf("graph api error %d: %s", e.Code, e.Message)
}

// Transient reports whether retrying the same request may succeed.
func (e *APIError) Transient() bool {
	return e.IsTransient != nil && *e.IsTransient
}

// NewClientError returns an APIError for a failure detected by the client.
func NewClientError(message string, transient bool) *APIError {
	e := &APIError{
		Message: message,
		Code:    ClientErrorCode,
	}
	if transient {
		e.IsTransient = Ptr(true)
	}

	return e
}
