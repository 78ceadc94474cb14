package transport

import (
	"strconv"

	"github.com/pkg/errors"
	"go.bug.st/serial/enumerator"
)

type DeviceInfo struct {
	Port         string `json:"port"`
	VID          uint16 `json:"vid"`
	PID          uint16 `json:"pid"`
	SerialNumber string `json:"serialNumber,omitempty"`
	Product      string `json:"product,omitempty"`
}

// Scan lists the USB serial ports whose vendor and product ids match.
func Scan(vid, pid uint16) ([]DeviceInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list serial ports")
	}

	return filterPorts(ports, vid, pid), nil
}

func filterPorts(ports []*enumerator.PortDetails, vid, pid uint16) []DeviceInfo {
	devices := make([]DeviceInfo, 0, len(ports))

	for _, p := range ports {
		if p == nil || !p.IsUSB {
			continue
		}

		portVID, err := parseID(p.VID)
		if err != nil || portVID != vid {
			continue
		}

		portPID, err := parseID(p.PID)
		if err != nil || portPID != pid {
			continue
		}

		devices = append(devices, DeviceInfo{
			Port:         p.Name,
			VID:          portVID,
			PID:          portPID,
			SerialNumber: p.SerialNumber,
			Product:      p.Product,
		})
	}

	return devices
}

// parseID parses the hex id reported by the enumerator, e.g. "2E8A".
func parseID(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 16, 16)
	return uint16(v), err
}
