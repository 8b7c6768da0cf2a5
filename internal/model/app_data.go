package model

// AppData carries tracking consent flags and app identifiers. Flag fields take 0 or 1.
type AppData struct {
	ApplicationTrackingEnabled *int
	// AdvertiserTrackingEnabled reflects the iOS 14+ tracking transparency choice.
	AdvertiserTrackingEnabled *int
	ConsiderViews             *int
	DeviceToken               *string
	IncludeDwellData          *int
	IncludeVideoData          *int
	InstallReferrer           *string
	InstallerPackage          *string
	ReceiptData               *string
	URLSchemes                []string
	WindowsAttributionID      *string
	CampaignIDs               *string

	Extra map[string]any
}
