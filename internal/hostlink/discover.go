package hostlink

import (
	"fmt"

	"go.bug.st/serial/enumerator"
)

// ProductName is the USB product string the device enumerates with.
const ProductName = "DC-01"

// PortInfo describes one serial port.
type PortInfo struct {
	Name    string
	Product string
	IsUSB   bool
}

// ListPorts returns every serial port with its USB details.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{Name: d.Name, Product: d.Product, IsUSB: d.IsUSB})
	}
	return ports, nil
}

// MatchProduct returns the names of the ports whose USB product equals product.
func MatchProduct(ports []PortInfo, product string) []string {
	var names []string
	for _, p := range ports {
		if p.IsUSB && p.Product == product {
			names = append(names, p.Name)
		}
	}
	return names
}
