// Package wire maps app events to and from the JSON payloads of the Graph API
// activities endpoint.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/jnst/fb-app-events/internal/model"
)

// EncodeEvent returns the wire form of e.
func EncodeEvent(e *model.Event) ([]byte, error) {
	w := newObjectWriter()

	w.value("event_name", e.EventName)
	w.value("event_time", e.EventTime)
	w.value("action_source", string(e.Source()))
	w.str("event_id", e.EventID)
	w.object(encodeUserData(e.UserData))
	w.object(encodeCustomData(e.CustomData))
	w.object(encodeAppData(e.AppData))

	w.str("_app_version", e.AppVersion)
	w.str("_os_version", e.OSVersion)
	w.str("_deviceModel", e.DeviceModel)
	w.str("_locale", e.Locale)
	w.str("_timezone", e.Timezone)
	w.str("_carrier", e.Carrier)
	w.integer("_screen_width", e.ScreenWidth)
	w.integer("_screen_height", e.ScreenHeight)
	w.decimal("_screen_density", e.ScreenDensity)
	w.integer("_cpu_cores", e.CPUCores)
	w.integer("_total_disk_space_gb", e.TotalDiskSpaceGB)
	w.integer("_free_disk_space_gb", e.FreeDiskSpaceGB)
	w.str("_device_time_zone_abbr", e.DeviceTimeZoneAbbr)
	w.str("_inferred_event_name", e.InferredEventName)
	w.integer("_implicit", e.Implicit)
	w.int64("_logTime", e.LogTime)

	w.extra(e.Extra)

	return w.bytes()
}

// DecodeEvent parses the wire form of an event. Unknown keys end up in Extra.
func DecodeEvent(data []byte) (*model.Event, error) {
	r, err := newObjectReader(data)
	if err != nil {
		return nil, err
	}

	var (
		e      model.Event
		source string
	)

	r.decode("event_name", &e.EventName)
	r.decode("event_time", &e.EventTime)
	if r.decode("action_source", &source) {
		e.ActionSource = model.ActionSource(source)
	}
	r.str("event_id", &e.EventID)

	r.object("user_data", func(raw []byte) (err error) {
		e.UserData, err = decodeUserData(raw)
		return err
	})
	r.object("custom_data", func(raw []byte) (err error) {
		e.CustomData, err = decodeCustomData(raw)
		return err
	})
	r.object("app_data", func(raw []byte) (err error) {
		e.AppData, err = decodeAppData(raw)
		return err
	})

	r.str("_app_version", &e.AppVersion)
	r.str("_os_version", &e.OSVersion)
	r.str("_deviceModel", &e.DeviceModel)
	r.str("_locale", &e.Locale)
	r.str("_timezone", &e.Timezone)
	r.str("_carrier", &e.Carrier)
	r.integer("_screen_width", &e.ScreenWidth)
	r.integer("_screen_height", &e.ScreenHeight)
	r.decimal("_screen_density", &e.ScreenDensity)
	r.integer("_cpu_cores", &e.CPUCores)
	r.integer("_total_disk_space_gb", &e.TotalDiskSpaceGB)
	r.integer("_free_disk_space_gb", &e.FreeDiskSpaceGB)
	r.str("_device_time_zone_abbr", &e.DeviceTimeZoneAbbr)
	r.str("_inferred_event_name", &e.InferredEventName)
	r.integer("_implicit", &e.Implicit)
	r.int64("_logTime", &e.LogTime)

	if e.Extra, err = r.extra(); err != nil {
		return nil, err
	}

	return &e, nil
}

func encodeUserData(u *model.UserData) (string, []byte, error) {
	const key = "user_data"
	if u == nil {
		return key, nil, nil
	}

	w := newObjectWriter()
	w.str("em", u.Email)
	w.str("fn", u.FirstName)
	w.str("ln", u.LastName)
	w.str("ph", u.Phone)
	w.str("ge", u.Gender)
	w.str("db", u.DateOfBirth)
	w.str("ct", u.City)
	w.str("st", u.State)
	w.str("zp", u.ZipCode)
	w.str("country", u.Country)
	w.str("external_id", u.ExternalID)
	w.str("client_ip_address", u.ClientIPAddress)
	w.str("client_user_agent", u.ClientUserAgent)
	w.str("fbc", u.FacebookClickID)
	w.str("fbp", u.FacebookBrowserID)
	w.str("subscription_id", u.SubscriptionID)
	w.str("fb_login_id", u.FacebookLoginID)
	w.str("lead_id", u.LeadID)
	w.str("madid", u.AdvertiserID)
	w.str("anon_id", u.AndroidAdvertisingID)

	b, err := w.bytes()

	return key, b, err
}

// decodeUserData drops unknown keys: UserData has no extra properties.
func decodeUserData(data []byte) (*model.UserData, error) {
	r, err := newObjectReader(data)
	if err != nil {
		return nil, err
	}

	var u model.UserData
	r.str("em", &u.Email)
	r.str("fn", &u.FirstName)
	r.str("ln", &u.LastName)
	r.str("ph", &u.Phone)
	r.str("ge", &u.Gender)
	r.str("db", &u.DateOfBirth)
	r.str("ct", &u.City)
	r.str("st", &u.State)
	r.str("zp", &u.ZipCode)
	r.str("country", &u.Country)
	r.str("external_id", &u.ExternalID)
	r.str("client_ip_address", &u.ClientIPAddress)
	r.str("client_user_agent", &u.ClientUserAgent)
	r.str("fbc", &u.FacebookClickID)
	r.str("fbp", &u.FacebookBrowserID)
	r.str("subscription_id", &u.SubscriptionID)
	r.str("fb_login_id", &u.FacebookLoginID)
	r.str("lead_id", &u.LeadID)
	r.str("madid", &u.AdvertiserID)
	r.str("anon_id", &u.AndroidAdvertisingID)

	if r.err != nil {
		return nil, r.err
	}

	return &u, nil
}

func encodeCustomData(c *model.CustomData) (string, []byte, error) {
	const key = "custom_data"
	if c == nil {
		return key, nil, nil
	}

	w := newObjectWriter()
	w.decimal("_valueToSum", c.Value)
	w.str("currency", c.Currency)
	w.str("_content_name", c.ContentName)
	w.str("_content_category", c.ContentCategory)
	w.str("_content_id", c.ContentID)
	w.str("_content_type", c.ContentType)
	w.str("_order_id", c.OrderID)
	w.decimal("_predicted_ltv", c.PredictedLTV)
	w.integer("_num_items", c.NumItems)
	w.str("_search_string", c.SearchString)
	w.str("_description", c.Description)
	w.str("_level", c.Level)
	w.integer("_max_rating_value", c.MaxRatingValue)
	w.integer("_payment_info_available", c.PaymentInfoAvailable)
	w.str("_registration_method", c.RegistrationMethod)
	w.integer("_success", c.Success)
	w.extra(c.Extra)

	b, err := w.bytes()

	return key, b, err
}

func decodeCustomData(data []byte) (*model.CustomData, error) {
	r, err := newObjectReader(data)
	if err != nil {
		return nil, err
	}

	var c model.CustomData
	r.decimal("_valueToSum", &c.Value)
	r.str("currency", &c.Currency)
	r.str("_content_name", &c.ContentName)
	r.str("_content_category", &c.ContentCategory)
	r.str("_content_id", &c.ContentID)
	r.str("_content_type", &c.ContentType)
	r.str("_order_id", &c.OrderID)
	r.decimal("_predicted_ltv", &c.PredictedLTV)
	r.integer("_num_items", &c.NumItems)
	r.str("_search_string", &c.SearchString)
	r.str("_description", &c.Description)
	r.str("_level", &c.Level)
	r.integer("_max_rating_value", &c.MaxRatingValue)
	r.integer("_payment_info_available", &c.PaymentInfoAvailable)
	r.str("_registration_method", &c.RegistrationMethod)
	r.integer("_success", &c.Success)

	if c.Extra, err = r.extra(); err != nil {
		return nil, err
	}

	return &c, nil
}

func encodeAppData(a *model.AppData) (string, []byte, error) {
	const key = "app_data"
	if a == nil {
		return key, nil, nil
	}

	w := newObjectWriter()
	w.integer("application_tracking_enabled", a.ApplicationTrackingEnabled)
	w.integer("advertiser_tracking_enabled", a.AdvertiserTrackingEnabled)
	w.integer("consider_views", a.ConsiderViews)
	w.str("device_token", a.DeviceToken)
	w.integer("include_dwell_data", a.IncludeDwellData)
	w.integer("include_video_data", a.IncludeVideoData)
	w.str("install_referrer", a.InstallReferrer)
	w.str("installer_package", a.InstallerPackage)
	w.str("receipt_data", a.ReceiptData)
	w.strings("url_schemes", a.URLSchemes)
	w.str("windows_attribution_id", a.WindowsAttributionID)
	w.str("campaign_ids", a.CampaignIDs)
	w.extra(a.Extra)

	b, err := w.bytes()

	return key, b, err
}

func decodeAppData(data []byte) (*model.AppData, error) {
	r, err := newObjectReader(data)
	if err != nil {
		return nil, err
	}

	var a model.AppData
	r.integer("application_tracking_enabled", &a.ApplicationTrackingEnabled)
	r.integer("advertiser_tracking_enabled", &a.AdvertiserTrackingEnabled)
	r.integer("consider_views", &a.ConsiderViews)
	r.str("device_token", &a.DeviceToken)
	r.integer("include_dwell_data", &a.IncludeDwellData)
	r.integer("include_video_data", &a.IncludeVideoData)
	r.str("install_referrer", &a.InstallReferrer)
	r.str("installer_package", &a.InstallerPackage)
	r.str("receipt_data", &a.ReceiptData)
	r.strings("url_schemes", &a.URLSchemes)
	r.str("windows_attribution_id", &a.WindowsAttributionID)
	r.str("campaign_ids", &a.CampaignIDs)

	if a.Extra, err = r.extra(); err != nil {
		return nil, err
	}

	return &a, nil
}

// EncodeRequest returns the request body for the activities endpoint.
func EncodeRequest(req *model.BatchRequest) ([]byte, error) {
	events := make([]json.RawMessage, len(req.Data))
	for i := range req.Data {
		b, err := EncodeEvent(&req.Data[i])
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		events[i] = b
	}

	w := newObjectWriter()
	w.value("data", events)
	w.str("test_event_code", req.TestEventCode)
	w.str("partner_agent", req.PartnerAgent)
	w.str("namespace_id", req.NamespaceID)
	w.str("upload_id", req.UploadID)
	w.str("upload_tag", req.UploadTag)
	w.str("upload_source", req.UploadSource)

	return w.bytes()
}

// DecodeRequest parses a request body in the activities endpoint format.
func DecodeRequest(data []byte) (*model.BatchRequest, error) {
	r, err := newObjectReader(data)
	if err != nil {
		return nil, err
	}

	var (
		req    model.BatchRequest
		events []json.RawMessage
	)

	r.decode("data", &events)
	r.str("test_event_code", &req.TestEventCode)
	r.str("partner_agent", &req.PartnerAgent)
	r.str("namespace_id", &req.NamespaceID)
	r.str("upload_id", &req.UploadID)
	r.str("upload_tag", &req.UploadTag)
	r.str("upload_source", &req.UploadSource)
	if r.err != nil {
		return nil, r.err
	}

	req.Data = make([]model.Event, 0, len(events))
	for i, raw := range events {
		e, err := DecodeEvent(raw)
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		req.Data = append(req.Data, *e)
	}

	return &req, nil
}

// DecodeResponse parses an activities endpoint response. A JSON null body decodes to
// a nil response and a nil error.
func DecodeResponse(data []byte) (*model.Response, error) {
	var resp *model.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return resp, nil
}
