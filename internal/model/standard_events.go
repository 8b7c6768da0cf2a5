package model

// StandardEvent is an event name with a predefined meaning on the Graph API.
// Event names outside this list are reported as custom events.
type StandardEvent string

const (
	EventAchievementUnlocked  StandardEvent = "fb_mobile_achievement_unlocked"
	EventActivateApp          StandardEvent = "fb_mobile_activate_app"
	EventAddPaymentInfo       StandardEvent = "fb_mobile_add_payment_info"
	EventAddToCart            StandardEvent = "fb_mobile_add_to_cart"
	EventAddToWishlist        StandardEvent = "fb_mobile_add_to_wishlist"
	EventCompleteRegistration StandardEvent = "fb_mobile_complete_registration"
	EventContentView          StandardEvent = "fb_mobile_content_view"
	EventInitiatedCheckout    StandardEvent = "fb_mobile_initiated_checkout"
	EventLevelAchieved        StandardEvent = "fb_mobile_level_achieved"
	EventPurchase             StandardEvent = "fb_mobile_purchase"
	EventRate                 StandardEvent = "fb_mobile_rate"
	EventSearch               StandardEvent = "fb_mobile_search"
	EventSpentCredits         StandardEvent = "fb_mobile_spent_credits"
	EventTutorialCompletion   StandardEvent = "fb_mobile_tutorial_completion"
	EventContact              StandardEvent = "Contact"
	EventCustomizeProduct     StandardEvent = "CustomizeProduct"
	EventDonate               StandardEvent = "Donate"
	EventFindLocation         StandardEvent = "FindLocation"
	EventSchedule             StandardEvent = "Schedule"
	EventStartTrial           StandardEvent = "StartTrial"
	EventSubmitApplication    StandardEvent = "SubmitApplication"
	EventSubscribe            StandardEvent = "Subscribe"
	EventAdClick              StandardEvent = "AdClick"
	EventAdImpression         StandardEvent = "AdImpression"
)

var standardEvents = map[StandardEvent]struct{}{
	EventAchievementUnlocked:  {},
	EventActivateApp:          {},
	EventAddPaymentInfo:       {},
	EventAddToCart:            {},
	EventAddToWishlist:        {},
	EventCompleteRegistration: {},
	EventContentView:          {},
	EventInitiatedCheckout:    {},
	EventLevelAchieved:        {},
	EventPurchase:             {},
	EventRate:                 {},
	EventSearch:               {},
	EventSpentCredits:         {},
	EventTutorialCompletion:   {},
	EventContact:              {},
	EventCustomizeProduct:     {},
	EventDonate:               {},
	EventFindLocation:         {},
	EventSchedule:             {},
	EventStartTrial:           {},
	EventSubmitApplication:    {},
	EventSubscribe:            {},
	EventAdClick:              {},
	EventAdImpression:         {},
}

// IsStandardEvent reports whether name is one of the predefined event names.
func IsStandardEvent(name string) bool {
	_, ok := standardEvents[StandardEvent(name)]
	return ok
}

// NewStandardEvent returns an app event for a predefined event name.
func NewStandardEvent(name StandardEvent, eventTime int64) Event {
	return NewEvent(string(name), eventTime)
}
