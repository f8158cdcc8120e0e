package catalog

import "fmt"

// NotFoundError is returned when a device lookup names a device the catalog does not hold.
type NotFoundError struct {
	Type  string // e.g. "device"
	Value string
}

func (err *NotFoundError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("%s %q not found", err.Type, err.Value)
	}
	return fmt.Sprintf("%q not found", err.Value)
}

// InvalidArgumentError is returned when a device is asked about a resource kind it does not price.
type InvalidArgumentError struct {
	Name    string // argument name, e.g. "resource kind"
	Value   string
	Message string
}

func (err *InvalidArgumentError) Error() string {
	s := fmt.Sprintf("invalid %s %q", err.Name, err.Value)
	if err.Message != "" {
		s += "; " + err.Message
	}
	return s
}
