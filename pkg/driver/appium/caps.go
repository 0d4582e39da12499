package appium

// Capability defaults for UiAutomator2 sessions.
const (
	DefaultSystemPort        = 8201
	DefaultNewCommandTimeout = 6000 // seconds

	defaultInstallTimeoutMs = 90000  // appium:androidInstallTimeout
	defaultServerInstallMs  = 120000 // appium:uiautomator2ServerInstallTimeout
	defaultAdbExecTimeoutMs = 120000
	defaultDeviceReadyMs    = 60000
)

// CapabilityOptions describes the session to request.
type CapabilityOptions struct {
	DeviceName        string // adb serial
	AppPackage        string
	AppActivity       string
	SystemPort        int
	NewCommandTimeout int // seconds
	// Extra capabilities override the defaults (keys as sent, e.g. "appium:noReset").
	Extra map[string]interface{}
}

// Capabilities builds the W3C alwaysMatch capability set for an Android app session.
func Capabilities(opts CapabilityOptions) map[string]interface{} {
	systemPort := opts.SystemPort
	if systemPort == 0 {
		systemPort = DefaultSystemPort
	}
	cmdTimeout := opts.NewCommandTimeout
	if cmdTimeout == 0 {
		cmdTimeout = DefaultNewCommandTimeout
	}

	caps := map[string]interface{}{
		"platformName":                           "Android",
		"appium:automationName":                  "UiAutomator2",
		"appium:noReset":                         true,
		"appium:autoGrantPermissions":            true,
		"appium:ignoreHiddenApiPolicyError":      true,
		"appium:disableWindowAnimation":          true,
		"appium:skipDeviceInitialization":        true,
		"appium:newCommandTimeout":               cmdTimeout,
		"appium:systemPort":                      systemPort,
		"appium:androidInstallTimeout":           defaultInstallTimeoutMs,
		"appium:uiautomator2ServerInstallTimeout": defaultServerInstallMs,
		"appium:adbExecTimeout":                  defaultAdbExecTimeoutMs,
		"appium:androidDeviceReadyTimeout":       defaultDeviceReadyMs,
		"appium:avdReadyTimeout":                 defaultDeviceReadyMs,
		"appium:avdLaunchTimeout":                defaultDeviceReadyMs,
	}

	if opts.DeviceName != "" {
		caps["appium:deviceName"] = opts.DeviceName
		caps["appium:udid"] = opts.DeviceName
	}
	if opts.AppPackage != "" {
		caps["appium:appPackage"] = opts.AppPackage
	}
	if opts.AppActivity != "" {
		caps["appium:appActivity"] = opts.AppActivity
	}
	for k, v := range opts.Extra {
		caps[k] = v
	}
	return caps
}
