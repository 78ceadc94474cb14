package internal

import "time"

const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 10 * time.Second
)

// USB identifiers of the signing device.
const (
	DeviceVID uint16 = 0x2E8A
	DevicePID uint16 = 0x10D8
)

const StatusChangedSignal = "status-changed"
