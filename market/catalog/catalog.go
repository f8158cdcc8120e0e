// Package catalog holds the static device table the market prices against.
// A Catalog is read-only after construction and safe for concurrent use.
package catalog

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultCostPerKWh is the electricity price used by CalculatePowerCost when none is given.
const DefaultCostPerKWh = 0.15

// utilizationPremium scales a device's list price with the utilization it is quoted at.
const utilizationPremium = 0.5

// Device describes one class of machine: its capacity, list prices, and power draw.
type Device struct {
	Name      string             `yaml:"-"`
	Category  string             `yaml:"category"`
	Resources map[string]float64 `yaml:"resources"`
	BasePrice map[string]float64 `yaml:"base_price"`
	PowerDraw float64            `yaml:"power_consumption"` // watts
}

// ResourceKinds returns the kinds this device prices, sorted.
func (d *Device) ResourceKinds() []string {
	kinds := make([]string, 0, len(d.BasePrice))
	for k := range d.BasePrice {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// CalculateResourcePrice quotes a resource at the given utilization:
// base * (1 + 0.5*utilization). Callers wanting the list price pass 1.0.
func (d *Device) CalculateResourcePrice(kind string, utilization float64) (float64, error) {
	base, ok := d.BasePrice[kind]
	if !ok {
		return 0, &InvalidArgumentError{
			Name:    "resource kind",
			Value:   kind,
			Message: fmt.Sprintf("not defined for device %s", d.Name),
		}
	}
	return base * (1.0 + utilizationPremium*utilization), nil
}

// CalculatePowerCost returns the electricity cost of running the device for the given hours.
// A non-positive costPerKWh selects DefaultCostPerKWh.
func (d *Device) CalculatePowerCost(hours, costPerKWh float64) float64 {
	if costPerKWh <= 0 {
		costPerKWh = DefaultCostPerKWh
	}
	kwh := d.PowerDraw * hours / 1000.0
	return kwh * costPerKWh
}

func (d *Device) clone() *Device {
	c := &Device{Name: d.Name, Category: d.Category, PowerDraw: d.PowerDraw}
	c.Resources = make(map[string]float64, len(d.Resources))
	for k, v := range d.Resources {
		c.Resources[k] = v
	}
	c.BasePrice = make(map[string]float64, len(d.BasePrice))
	for k, v := range d.BasePrice {
		c.BasePrice[k] = v
	}
	return c
}

// Catalog is an immutable name -> Device table.
type Catalog struct {
	devices map[string]*Device
}

// New builds a Catalog from the given devices. Device names must be unique and non-empty.
func New(devices ...*Device) (*Catalog, error) {
	c := &Catalog{devices: make(map[string]*Device, len(devices))}
	for _, d := range devices {
		if d == nil {
			return nil, fmt.Errorf("nil device")
		}
		if d.Name == "" {
			return nil, fmt.Errorf("device with empty name")
		}
		if _, dup := c.devices[d.Name]; dup {
			return nil, fmt.Errorf("duplicate device %q", d.Name)
		}
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("device %q: %w", d.Name, err)
		}
		c.devices[d.Name] = d.clone()
	}
	return c, nil
}

func (d *Device) validate() error {
	for k, v := range d.BasePrice {
		if v < 0 {
			return fmt.Errorf("base_price[%s] must be non-negative, got %f", k, v)
		}
	}
	for k, v := range d.Resources {
		if v < 0 {
			return fmt.Errorf("resources[%s] must be non-negative, got %f", k, v)
		}
	}
	if d.PowerDraw < 0 {
		return fmt.Errorf("power_consumption must be non-negative, got %f", d.PowerDraw)
	}
	return nil
}

// GetDevice returns a copy of the named device, or a *NotFoundError.
func (c *Catalog) GetDevice(name string) (*Device, error) {
	d, ok := c.devices[name]
	if !ok {
		return nil, &NotFoundError{Type: "device", Value: name}
	}
	return d.clone(), nil
}

// ListDevices returns all device names, sorted.
func (c *Catalog) ListDevices() []string {
	names := make([]string, 0, len(c.devices))
	for name := range c.devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// catalogFile is the on-disk layout of a device catalog.
type catalogFile struct {
	Devices map[string]*Device `yaml:"devices"`
}

// LoadCatalog reads a YAML device catalog. Unknown fields are rejected.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML device catalog held in memory.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing device catalog: %w", err)
	}
	devices := make([]*Device, 0, len(f.Devices))
	for name, d := range f.Devices {
		if d == nil {
			return nil, fmt.Errorf("device %q has no definition", name)
		}
		d.Name = name
		devices = append(devices, d)
	}
	return New(devices...)
}

// DefaultCatalog returns the built-in three-tier catalog used when no file is supplied.
func DefaultCatalog() *Catalog {
	c, err := New(
		&Device{
			Name:      "edge-node",
			Category:  "edge",
			Resources: map[string]float64{"cpu": 4, "memory": 8, "network": 1},
			BasePrice: map[string]float64{"cpu": 0.02, "memory": 0.005, "network": 0.01},
			PowerDraw: 15,
		},
		&Device{
			Name:      "server",
			Category:  "cloud",
			Resources: map[string]float64{"cpu": 32, "memory": 128, "network": 10},
			BasePrice: map[string]float64{"cpu": 0.04, "memory": 0.01, "network": 0.02},
			PowerDraw: 350,
		},
		&Device{
			Name:      "gpu-server",
			Category:  "accelerator",
			Resources: map[string]float64{"cpu": 64, "memory": 512, "network": 25, "gpu": 8},
			BasePrice: map[string]float64{"cpu": 0.05, "memory": 0.012, "network": 0.025, "gpu": 2.5},
			PowerDraw: 3000,
		},
	)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}
