// Package malgo wraps github.com/gen2brain/malgo for the native backend of
// the audio-context shim: device enumeration and a playback stream whose
// data callback is driven by a caller-supplied render function.
package malgo

import (
	"encoding/hex"
	"runtime"
	"strings"

	"github.com/tphakala/audiocore/internal/errors"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes one playback-capable audio device.
type DeviceInfo struct {
	Index int
	Name  string
	ID    string
}

// backendsForPlatform returns the malgo backends to probe, in preference
// order, for the current platform.
func backendsForPlatform() ([]malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return []malgo.Backend{malgo.BackendAlsa, malgo.BackendPulseaudio}, nil
	case "windows":
		return []malgo.Backend{malgo.BackendWasapi}, nil
	case "darwin":
		return []malgo.Backend{malgo.BackendCoreaudio}, nil
	default:
		return nil, errors.New(nil).
			Component("contextshim").
			Category(errors.CategoryPlatform).
			Context("os", runtime.GOOS).
			Build()
	}
}

// EnumerateDevices returns the available playback devices.
func EnumerateDevices() ([]DeviceInfo, error) {
	backends, err := backendsForPlatform()
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component("contextshim").
			Category(errors.CategoryPlatform).
			Context("operation", "init_context").
			Build()
	}
	defer func() { _ = ctx.Uninit() }()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, errors.New(err).
			Component("contextshim").
			Category(errors.CategoryPlatform).
			Context("operation", "enumerate_devices").
			Build()
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			decodedID = infos[i].ID.String()
		}
		devices = append(devices, DeviceInfo{
			Index: i,
			Name:  infos[i].Name(),
			ID:    decodedID,
		})
	}
	return devices, nil
}

// SelectDevice finds a playback device. An empty name, "default" or
// "sysdefault" selects the device marked as system default, or the first
// enumerated device if none is marked. Any other name is matched against
// device names, then decoded IDs, then as a substring of device names; a
// name that matches nothing is an error.
func SelectDevice(devices []malgo.DeviceInfo, deviceName string) (*malgo.DeviceInfo, error) {
	if deviceName == "" || deviceName == "default" || deviceName == "sysdefault" {
		for i := range devices {
			if devices[i].IsDefault == 1 {
				return &devices[i], nil
			}
		}
		if len(devices) > 0 {
			return &devices[0], nil
		}
	}

	for i := range devices {
		if devices[i].Name() == deviceName {
			return &devices[i], nil
		}
	}
	for i := range devices {
		decodedID, err := hexToASCII(devices[i].ID.String())
		if err == nil && decodedID == deviceName {
			return &devices[i], nil
		}
	}
	for i := range devices {
		if strings.Contains(devices[i].Name(), deviceName) {
			return &devices[i], nil
		}
	}

	return nil, errors.New(nil).
		Component("contextshim").
		Category(errors.CategoryValidation).
		Context("device_name", deviceName).
		Context("available_devices", len(devices)).
		Build()
}

func hexToASCII(hexStr string) (string, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
