package services

import (
	"regexp"

	"taste3d/pkg/models"
)

var (
	iosPattern     = regexp.MustCompile(`iPhone|iPad|iPod`)
	androidPattern = regexp.MustCompile(`Android`)
	safariPattern  = regexp.MustCompile(`Safari`)
	chromePattern  = regexp.MustCompile(`Chrome`)
)

// unsupportedARReason is shown next to the disabled AR button
const unsupportedARReason = "Realitatea augmentată este disponibilă doar pe dispozitive mobile (iOS Safari sau Android Chrome)"

// Platform is the AR activation strategy for a client. The implementations
// are IOSSafari, Android and Unsupported; use MatchPlatform to branch on it.
type Platform interface {
	platform()
}

// IOSSafari opens USDZ models in Quick Look through a rel="ar" link
type IOSSafari struct{}

// Android opens GLB models in Scene Viewer through an intent URI
type Android struct{}

// Unsupported clients see the AR control disabled
type Unsupported struct {
	Reason string
}

func (IOSSafari) platform()   {}
func (Android) platform()     {}
func (Unsupported) platform() {}

// Device is the classification of a user agent
type Device struct {
	Platform Platform
	Mobile   bool
}

// SupportsAR reports whether the AR entry point is enabled
func (d Device) SupportsAR() bool {
	return MatchPlatform(d.Platform,
		func(IOSSafari) bool { return true },
		func(Android) bool { return true },
		func(Unsupported) bool { return false },
	)
}

// MatchPlatform calls the function for p's variant. Adding a platform adds a
// parameter here, so every call site has to handle it.
func MatchPlatform[T any](p Platform, ios func(IOSSafari) T, android func(Android) T, unsupported func(Unsupported) T) T {
	switch v := p.(type) {
	case IOSSafari:
		return ios(v)
	case Android:
		return android(v)
	case Unsupported:
		return unsupported(v)
	default:
		return unsupported(Unsupported{Reason: unsupportedARReason})
	}
}

// DetectDevice classifies a user agent string
func DetectDevice(userAgent string) Device {
	isIOS := iosPattern.MatchString(userAgent)
	isAndroid := androidPattern.MatchString(userAgent)
	isSafari := safariPattern.MatchString(userAgent) && !chromePattern.MatchString(userAgent)

	d := Device{Mobile: isIOS || isAndroid}
	switch {
	case isIOS && isSafari:
		d.Platform = IOSSafari{}
	case isAndroid:
		d.Platform = Android{}
	default:
		d.Platform = Unsupported{Reason: unsupportedARReason}
	}
	return d
}

// sceneViewerIntent builds the Scene Viewer intent URI for a GLB under origin
func sceneViewerIntent(origin, glb string) string {
	return "intent://arvr.google.com/scene-viewer/1.0?file=" + origin + glb +
		"#Intent;scheme=https;package=com.google.android.googlequicksearchbox;action=android.intent.action.VIEW;" +
		"S.browser_fallback_url=https://developers.google.com/ar;end;"
}

// ARLaunchFor builds the AR entry point for a device
func ARLaunchFor(d Device, asset models.ARAsset, origin string) models.ARLaunch {
	return MatchPlatform(d.Platform,
		func(IOSSafari) models.ARLaunch {
			return models.ARLaunch{
				Enabled:  true,
				Platform: "ios",
				Href:     asset.USDZ,
				Rel:      "ar",
				Label:    "📱 Vedere în AR (iOS)",
				Hint:     "Necesită Safari pe iPhone/iPad",
			}
		},
		func(Android) models.ARLaunch {
			return models.ARLaunch{
				Enabled:  true,
				Platform: "android",
				Href:     sceneViewerIntent(origin, asset.GLB),
				Label:    "🤖 Vedere în AR (Android)",
				Hint:     "Necesită Google Chrome și Scene Viewer",
			}
		},
		func(u Unsupported) models.ARLaunch {
			return models.ARLaunch{
				Platform: "unsupported",
				Label:    "🔍 Vedere în AR (doar mobil)",
				Hint:     u.Reason,
			}
		},
	)
}
