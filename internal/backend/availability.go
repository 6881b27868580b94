package backend

import "strings"

// Available returns a comma-separated list of the drivers in this build.
func Available() string {
	entries := []string{Sim}
	if Has(OpenCL) {
		entries = append(entries, OpenCL)
	}
	return strings.Join(entries, ",")
}
