package wire

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jnst/fb-app-events/internal/model"
)

func TestEncodeEvent_RequiredOnly(t *testing.T) {
	e := model.NewStandardEvent(model.EventActivateApp, 1700000000)

	b, err := EncodeEvent(&e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event_name":"fb_mobile_activate_app","event_time":1700000000,"action_source":"app"}`, string(b))
	assert.NotContains(t, string(b), "null")
}

func TestEncodeEvent_DefaultsActionSource(t *testing.T) {
	e := model.Event{EventName: "custom", EventTime: 1}

	b, err := EncodeEvent(&e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"action_source":"app"`)
}

func TestEventRoundTrip_RequiredOnly(t *testing.T) {
	e := model.NewEvent("level_up", 1700000000)

	b, err := EncodeEvent(&e)
	require.NoError(t, err)

	got, err := DecodeEvent(b)
	require.NoError(t, err)
	assert.Equal(t, &e, got)
	assert.Nil(t, got.UserData)
	assert.Nil(t, got.CustomData)
	assert.Nil(t, got.AppData)
	assert.Nil(t, got.EventID)
	assert.Nil(t, got.ScreenDensity)
	assert.Nil(t, got.Extra)
}

func TestEncodeEvent_WireKeys(t *testing.T) {
	e := model.NewStandardEvent(model.EventPurchase, 1700000000)
	e.EventID = model.Ptr("3f1c")
	e.UserData = &model.UserData{
		Email:                model.Ptr("e"),
		FirstName:            model.Ptr("f"),
		LastName:             model.Ptr("l"),
		Phone:                model.Ptr("p"),
		Gender:               model.Ptr("g"),
		DateOfBirth:          model.Ptr("d"),
		City:                 model.Ptr("c"),
		State:                model.Ptr("s"),
		ZipCode:              model.Ptr("z"),
		Country:              model.Ptr("co"),
		ExternalID:           model.Ptr("x"),
		ClientIPAddress:      model.Ptr("10.0.0.1"),
		ClientUserAgent:      model.Ptr("ua"),
		FacebookClickID:      model.Ptr("fbc"),
		FacebookBrowserID:    model.Ptr("fbp"),
		SubscriptionID:       model.Ptr("sub"),
		FacebookLoginID:      model.Ptr("login"),
		LeadID:               model.Ptr("lead"),
		AdvertiserID:         model.Ptr("madid"),
		AndroidAdvertisingID: model.Ptr("anon"),
	}
	e.DeviceModel = model.Ptr("Pixel 8")
	e.ScreenWidth = model.Ptr(1080)
	e.LogTime = model.Ptr(int64(1700000001))

	b, err := EncodeEvent(&e)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	assert.Equal(t, "3f1c", got["event_id"])
	assert.Equal(t, "Pixel 8", got["_deviceModel"])
	assert.EqualValues(t, 1080, got["_screen_width"])
	assert.EqualValues(t, 1700000001, got["_logTime"])

	user, ok := got["user_data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{
		"em": "e", "fn": "f", "ln": "l", "ph": "p", "ge": "g", "db": "d", "ct": "c", "st": "s",
		"zp": "z", "country": "co", "external_id": "x", "client_ip_address": "10.0.0.1",
		"client_user_agent": "ua", "fbc": "fbc", "fbp": "fbp", "subscription_id": "sub",
		"fb_login_id": "login", "lead_id": "lead", "madid": "madid", "anon_id": "anon",
	}, user)
}

func TestEncodeEvent_DecimalPrecision(t *testing.T) {
	e := model.NewStandardEvent(model.EventPurchase, 1700000000)
	e.CustomData = &model.CustomData{
		Value:        model.Ptr(decimal.RequireFromString("12345678901234567890.123456789")),
		Currency:     model.Ptr("USD"),
		PredictedLTV: model.Ptr(decimal.RequireFromString("0.1")),
	}

	b, err := EncodeEvent(&e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"_valueToSum":12345678901234567890.123456789`)
	assert.Contains(t, string(b), `"_predicted_ltv":0.1`)

	got, err := DecodeEvent(b)
	require.NoError(t, err)
	require.NotNil(t, got.CustomData.Value)
	assert.Equal(t, "12345678901234567890.123456789", got.CustomData.Value.String())
	assert.True(t, got.CustomData.PredictedLTV.Equal(decimal.RequireFromString("0.1")))
}

func TestDecodeEvent_QuotedDecimal(t *testing.T) {
	got, err := DecodeEvent([]byte(`{"event_name":"x","event_time":1,"custom_data":{"_valueToSum":"9.99"}}`))
	require.NoError(t, err)
	assert.Equal(t, "9.99", got.CustomData.Value.String())
}

func TestEncodeEvent_ExtraFlattened(t *testing.T) {
	e := model.NewEvent("custom", 1)
	e.Extra = map[string]any{"b_prop": "two", "a_prop": 1, "skipped": nil}
	e.AppData = &model.AppData{
		AdvertiserTrackingEnabled: model.Ptr(1),
		URLSchemes:                []string{"fb123", "myapp"},
		Extra:                     map[string]any{"sdk": "ios"},
	}

	b, err := EncodeEvent(&e)
	require.NoError(t, err)
	assert.Equal(t,
		`{"event_name":"custom","event_time":1,"action_source":"app",`+
			`"app_data":{"advertiser_tracking_enabled":1,"url_schemes":["fb123","myapp"],"sdk":"ios"},`+
			`"a_prop":1,"b_prop":"two"}`,
		string(b))
}

func TestEncodeEvent_ExtraCollision(t *testing.T) {
	e := model.NewEvent("custom", 1)
	e.Extra = map[string]any{"event_name": "shadow"}

	_, err := EncodeEvent(&e)
	require.ErrorIs(t, err, model.ErrExtraKeyCollision)

	e.Extra = nil
	e.CustomData = &model.CustomData{
		Currency: model.Ptr("EUR"),
		Extra:    map[string]any{"currency": "USD"},
	}

	_, err = EncodeEvent(&e)
	require.ErrorIs(t, err, model.ErrExtraKeyCollision)
}

func TestEncodeEvent_ExtraCollidesWithAbsentNamedKey(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *model.Event)
		key    string
	}{
		{
			name:   "absent device field",
			mutate: func(e *model.Event) { e.Extra = map[string]any{"_app_version": "9.9"} },
			key:    "_app_version",
		},
		{
			name:   "absent nested object",
			mutate: func(e *model.Event) { e.Extra = map[string]any{"user_data": "oops"} },
			key:    "user_data",
		},
		{
			name:   "absent event id",
			mutate: func(e *model.Event) { e.Extra = map[string]any{"event_id": "shadow"} },
			key:    "event_id",
		},
		{
			name: "absent custom data value",
			mutate: func(e *model.Event) {
				e.CustomData = &model.CustomData{Extra: map[string]any{"_valueToSum": 1}}
			},
			key: "_valueToSum",
		},
		{
			name: "absent app data list",
			mutate: func(e *model.Event) {
				e.AppData = &model.AppData{Extra: map[string]any{"url_schemes": []string{"x"}}}
			},
			key: "url_schemes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := model.NewEvent("custom", 1)
			tt.mutate(&e)

			_, err := EncodeEvent(&e)
			require.ErrorIs(t, err, model.ErrExtraKeyCollision)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestEncodeEvent_DecimalKeepsScale(t *testing.T) {
	e := model.NewStandardEvent(model.EventPurchase, 1700000000)
	e.CustomData = &model.CustomData{
		Value:        model.Ptr(decimal.RequireFromString("1.50")),
		PredictedLTV: model.Ptr(decimal.RequireFromString("100")),
	}
	e.ScreenDensity = model.Ptr(decimal.RequireFromString("2.000"))

	b, err := EncodeEvent(&e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"_valueToSum":1.50`)
	assert.Contains(t, string(b), `"_predicted_ltv":100`)
	assert.Contains(t, string(b), `"_screen_density":2.000`)

	got, err := DecodeEvent(b)
	require.NoError(t, err)

	again, err := EncodeEvent(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(again))
	assert.Contains(t, string(again), `"_valueToSum":1.50`)
}

func TestDecodeEvent_UnknownKeysBecomeExtra(t *testing.T) {
	data := `{
		"event_name":"fb_mobile_purchase","event_time":1700000000,"action_source":"website",
		"custom_data":{"currency":"USD","fb_content":[{"id":"1"}],"_valueToSum":19.99},
		"app_data":{"url_schemes":["a"],"extinfo":["i2","com.app"]},
		"user_data":{"em":"h","unknown":"dropped"},
		"_button_text":"Buy","_price":10.50,"_nothing":null
	}`

	got, err := DecodeEvent([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, model.ActionSourceWebsite, got.ActionSource)
	assert.Equal(t, map[string]any{"_button_text": "Buy", "_price": json.Number("10.50")}, got.Extra)
	assert.Equal(t, []any{map[string]any{"id": "1"}}, got.CustomData.Extra["fb_content"])
	assert.Equal(t, "19.99", got.CustomData.Value.String())
	assert.Equal(t, []string{"a"}, got.AppData.URLSchemes)
	assert.Equal(t, []any{"i2", "com.app"}, got.AppData.Extra["extinfo"])
	assert.Equal(t, "h", *got.UserData.Email)

	again, err := EncodeEvent(got)
	require.NoError(t, err)
	assert.Contains(t, string(again), `"_price":10.50`)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	for _, in := range []string{``, `[]`, `null`, `{"event_time":"soon"}`, `{"user_data":"x"}`, `{"custom_data":{"_valueToSum":"abc"}}`} {
		_, err := DecodeEvent([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestEncodeRequest(t *testing.T) {
	req := &model.BatchRequest{
		Data: []model.Event{
			model.NewStandardEvent(model.EventActivateApp, 1),
			model.NewEvent("custom", 2),
		},
		TestEventCode: model.Ptr("TEST123"),
		UploadTag:     model.Ptr("backfill"),
	}

	b, err := EncodeRequest(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"data":[
			{"event_name":"fb_mobile_activate_app","event_time":1,"action_source":"app"},
			{"event_name":"custom","event_time":2,"action_source":"app"}
		],
		"test_event_code":"TEST123",
		"upload_tag":"backfill"
	}`, string(b))

	got, err := DecodeRequest(b)
	require.NoError(t, err)
	assert.Equal(t, req, got)
}

func TestEncodeRequest_PropagatesEventError(t *testing.T) {
	e := model.NewEvent("custom", 1)
	e.Extra = map[string]any{"event_time": 2}

	_, err := EncodeRequest(&model.BatchRequest{Data: []model.Event{e}})
	require.ErrorIs(t, err, model.ErrExtraKeyCollision)
	assert.Contains(t, err.Error(), "data[0]")
}

func TestDecodeResponse(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"events_received":3,"fbtrace_id":"AbC","messages":["ok"]}`))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 3, resp.EventsReceived)
	assert.Equal(t, "AbC", *resp.FBTraceID)
	assert.Equal(t, []string{"ok"}, resp.Messages)
	assert.False(t, resp.Failed())

	resp, err = DecodeResponse([]byte(`{"events_received":2,"error":{"message":"Invalid parameter","code":100,"error_subcode":2804003,"is_transient":false}}`))
	require.NoError(t, err)
	require.True(t, resp.Failed())
	assert.Equal(t, 100, resp.Error.Code)
	assert.Equal(t, 2804003, *resp.Error.ErrorSubcode)
	assert.False(t, resp.Error.Transient())

	resp, err = DecodeResponse([]byte(`null`))
	require.NoError(t, err)
	assert.Nil(t, resp)

	_, err = DecodeResponse([]byte(`<html>`))
	require.ErrorIs(t, err, ErrMalformed)
}
