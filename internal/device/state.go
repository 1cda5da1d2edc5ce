// Package device holds the simulated Android device state that voice
// directives act on.
//
// The state is an explicit object owned by the application and passed into
// the dispatcher — never package-level. No real device is touched; toggles
// and levels only exist to make directive effects observable.
package device

import "sync"

// Snapshot is a copy of the device state at a point in time.
type Snapshot struct {
	Wifi         bool `json:"wifi"`
	Bluetooth    bool `json:"bluetooth"`
	Flashlight   bool `json:"flashlight"`
	AirplaneMode bool `json:"airplane_mode"`
	MobileData   bool `json:"mobile_data"`
	Brightness   int  `json:"brightness"`
	Volume       int  `json:"volume"`
	Muted        bool `json:"muted"`
	Battery      int  `json:"battery"`
	ScreenLocked bool `json:"screen_locked"`
}

// volumeStep and brightnessStep are the per-directive adjustment increments.
const (
	volumeStep     = 15
	brightnessStep = 10
)

// State is the mutable device-simulation state bag. All methods are safe for
// concurrent use.
type State struct {
	mu   sync.Mutex
	snap Snapshot
}

// New creates a State with the stock power-on defaults.
func New() *State {
	return &State{snap: Snapshot{
		Wifi:       true,
		MobileData: true,
		Brightness: 70,
		Volume:     50,
		Battery:    88,
	}}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Apply mutates the state for a recognised immediate directive and returns a
// user-visible notification. ok is false for directive names the device
// vocabulary does not know; the state is untouched in that case.
func (s *State) Apply(directive string) (notification string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch directive {
	case "WIFI_ON":
		s.snap.Wifi = true
		return "WiFi চালু হয়েছে", true
	case "WIFI_OFF":
		s.snap.Wifi = false
		return "WiFi বন্ধ হয়েছে", true
	case "BLUETOOTH_ON":
		s.snap.Bluetooth = true
		return "Bluetooth চালু হয়েছে", true
	case "BLUETOOTH_OFF":
		s.snap.Bluetooth = false
		return "Bluetooth বন্ধ হয়েছে", true
	case "FLASHLIGHT_ON":
		s.snap.Flashlight = true
		return "ফ্ল্যাশলাইট অন হয়েছে", true
	case "FLASHLIGHT_OFF":
		s.snap.Flashlight = false
		return "ফ্ল্যাশলাইট অফ হয়েছে", true
	case "AIRPLANE_ON":
		s.snap.AirplaneMode = true
		s.snap.Wifi = false
		s.snap.MobileData = false
		return "এয়ারপ্লেন মোড অন", true
	case "AIRPLANE_OFF":
		s.snap.AirplaneMode = false
		return "এয়ারপ্লেন মোড অফ", true
	case "VOLUME_UP":
		s.snap.Volume = min(100, s.snap.Volume+volumeStep)
		return "ভলিউম বাড়ানো হয়েছে", true
	case "VOLUME_DOWN":
		s.snap.Volume = max(0, s.snap.Volume-volumeStep)
		return "ভলিউম কমানো হয়েছে", true
	case "MUTE":
		s.snap.Muted = true
		return "ডিভাইস মিউট করা হয়েছে", true
	case "UNMUTE":
		s.snap.Muted = false
		return "মিউট সরানো হয়েছে", true
	case "BRIGHTNESS_UP":
		s.snap.Brightness = min(100, s.snap.Brightness+brightnessStep)
		return "ব্রাইটনেস বাড়ানো হয়েছে", true
	case "BRIGHTNESS_DOWN":
		s.snap.Brightness = max(0, s.snap.Brightness-brightnessStep)
		return "ব্রাইটনেস কমানো হয়েছে", true
	case "LOCK":
		s.snap.ScreenLocked = true
		return "স্ক্রিন লক করা হয়েছে", true
	case "UNLOCK":
		s.snap.ScreenLocked = false
		return "স্ক্রিন আনলক হয়েছে", true
	}
	return "", false
}
