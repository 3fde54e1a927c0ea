package cameras

import (
	"context"
	"time"

	"github.com/smazurov/camnode/internal/config"
	"github.com/smazurov/camnode/internal/events"
	"github.com/smazurov/camnode/pkg/evk"
	"github.com/smazurov/camnode/pkg/usbmon"
)

// handleDeviceEvent runs once per arrival or departure found by a
// device list refresh.
func (m *Manager) handleDeviceEvent(code evk.EventCode, dev *evk.Device) {
	switch code {
	case evk.EventDeviceConnect, evk.EventUnknownDeviceConnect:
		m.logger.Info("Device attached",
			"device_id", dev.Path,
			"serial", dev.Serial,
			"usb_type", evk.USBTypeName(dev.USBType))
		m.publishDiscovery(dev, "added")
		if m.autoOpen {
			m.tryAutoOpen(dev)
		}
	case evk.EventDeviceDisconnect:
		m.logger.Info("Device detached", "device_id", dev.Path, "serial", dev.Serial)
		m.publishDiscovery(dev, "removed")
		m.closeDetached(dev)
	}
}

func (m *Manager) publishDiscovery(dev *evk.Device, action string) {
	m.bus.Publish(events.DeviceDiscoveryEvent{
		DeviceInfo: deviceInfo(dev),
		Action:     action,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// tryAutoOpen opens an arriving device when a profile claims it.
func (m *Manager) tryAutoOpen(dev *evk.Device) {
	if m.profiles == nil {
		return
	}
	profile, ok := m.profiles.FindMatch(dev.VendorID, dev.ProductID, dev.Serial)
	if !ok {
		return
	}

	label := profile.Name
	if label == "" {
		label = profile.ID
	}
	session, err := m.Open(OpenParams{
		DeviceID:   dev.Path,
		ConfigFile: profile.ConfigFile,
		Init:       true,
		Profile:    label,
	})
	if err != nil {
		m.logger.Error("Auto-open failed",
			"device_id", dev.Path, "profile", label, "error", err)
		return
	}

	m.applyProfile(session, profile)

	if profile.AutoStart {
		if err := session.Start(); err != nil {
			m.logger.Error("Auto-start failed",
				"camera_id", session.id, "profile", label, "error", err)
			return
		}
	}
	m.logger.Info("Camera auto-opened",
		"camera_id", session.id,
		"device_id", dev.Path,
		"profile", label,
		"auto_start", profile.AutoStart)
}

// applyProfile programs the profile's mode and control values onto an
// initialized camera. Failures degrade to warnings; the session stays
// usable with defaults.
func (m *Manager) applyProfile(session *Session, profile config.CameraProfile) {
	camera := session.Camera()
	if profile.Mode != 0 {
		if err := camera.SwitchMode(profile.Mode); err != nil {
			m.logger.Warn("Profile mode switch failed",
				"camera_id", session.id, "mode", profile.Mode, "error", err)
		}
	}
	for fn, val := range profile.Controls {
		if err := camera.SetCtrl(fn, val); err != nil {
			m.logger.Warn("Profile control rejected",
				"camera_id", session.id, "control", fn, "value", val, "error", err)
		}
	}
}

// closeDetached tears down the session whose device just disappeared.
func (m *Manager) closeDetached(dev *evk.Device) {
	m.mu.RLock()
	session, ok := m.byDevice[dev.Path]
	m.mu.RUnlock()
	if !ok || session == nil {
		return
	}
	m.logger.Warn("Closing camera after device removal",
		"camera_id", session.id, "device_id", dev.Path)
	if err := m.Close(session.id); err != nil {
		m.logger.Error("Close after removal failed", "camera_id", session.id, "error", err)
	}
}

// WatchHotplug follows kernel uevents and refreshes the device list on
// every USB attach or detach, which in turn fires discovery handling.
// Blocks until the context is cancelled. On platforms without uevent
// support it returns the monitor construction error; callers fall back
// to manual refreshes.
func (m *Manager) WatchHotplug(ctx context.Context) error {
	monitor, err := usbmon.NewMonitor()
	if err != nil {
		return err
	}
	defer monitor.Close()
	monitor.AddSubsystemFilter("usb")

	uevents := make(chan usbmon.Event, 16)
	done := make(chan error, 1)
	go func() {
		done <- monitor.Run(ctx, uevents)
	}()

	m.logger.Info("USB hotplug watch started")
	for {
		select {
		case <-ctx.Done():
			return <-done
		case ev, ok := <-uevents:
			if !ok {
				return <-done
			}
			if !ev.IsUSBDevice() {
				continue
			}
			if ev.Action != usbmon.ActionAdd && ev.Action != usbmon.ActionRemove {
				continue
			}
			m.logger.Debug("USB uevent",
				"action", ev.Action,
				"vendor_id", ev.VendorID,
				"product_id", ev.ProductID)
			if err := m.Refresh(); err != nil {
				m.logger.Warn("Device refresh after uevent failed", "error", err)
			}
		}
	}
}
